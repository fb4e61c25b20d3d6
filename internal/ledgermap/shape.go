package ledgermap

// Shape names the top-level encoding Normalize detected.
type Shape string

const (
	ShapeTree   Shape = "tree"   // tagged root + children tree
	ShapeRoot   Shape = "root"   // untagged root, decoded best-effort
	ShapeFlat   Shape = "flat"   // array of pairs
	ShapeHandle Shape = "handle" // indirect table, not listable here
	ShapeEmpty  Shape = "empty"
)

// Normalize detects the encoding of a map payload and returns its pairs in
// source order. Maps stored behind a table handle yield no pairs and
// ShapeHandle: the entries exist but need ledger calls this package does not
// make.
func Normalize(payload any, maxDepth int) ([]Pair, Shape) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if arr, ok := payload.([]any); ok {
		return slotPairs(arr), ShapeFlat
	}
	m, ok := asObject(payload)
	if !ok {
		return nil, ShapeEmpty
	}

	if root, ok := m["root"]; ok {
		pairs := DecodeNode(root, 0, maxDepth)
		if variantOf(m) == VariantTree {
			return pairs, ShapeTree
		}
		return pairs, ShapeRoot
	}
	if arr, ok := childEntries(m); ok {
		return slotPairs(arr), ShapeFlat
	}
	if _, ok := m["handle"]; ok {
		return nil, ShapeHandle
	}
	return nil, ShapeEmpty
}
