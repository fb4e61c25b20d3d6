package ledgermap

// maxWrapLayers bounds how many leaf-slot wrappers Classify peels. The ledger
// produces exactly one today.
const maxWrapLayers = 4

// messageFields lists the payload field of the message variant, newest
// encoding first.
var messageFields = []string{"message", "content", "text"}

// Entry is the closed set of entry kinds a map value can hold.
type Entry interface {
	entry()
}

// Message is a plain-text note.
type Message struct {
	Text string
}

// Unknown is a value that was present but matched no known entry kind.
type Unknown struct {
	Raw any
}

func (Message) entry() {}
func (Unknown) entry() {}

// Classify maps a raw entry value onto an Entry. It never fails; shapes it
// does not recognise come back as Unknown.
func Classify(value any) Entry {
	v := value
	for layer := 0; layer <= maxWrapLayers; layer++ {
		if s, ok := v.(string); ok {
			return Message{Text: s}
		}
		m, ok := asObject(v)
		if !ok {
			break
		}
		switch variantOf(m) {
		case VariantLeaf:
			inner, ok := m["value"]
			if !ok {
				return Unknown{Raw: value}
			}
			v = inner
			continue
		case VariantMessage:
			for _, f := range messageFields {
				if s, ok := m[f].(string); ok {
					return Message{Text: s}
				}
			}
		}
		break
	}
	return Unknown{Raw: value}
}

// Unwrap returns the message text carried by value, or false when the value
// holds no interpretable payload.
func Unwrap(value any) (string, bool) {
	if msg, ok := Classify(value).(Message); ok {
		return msg.Text, true
	}
	return "", false
}
