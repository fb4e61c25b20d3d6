package mcpserver

// EntryFormat describes how a user's on-ledger note map is decoded into
// the entries returned by the tools.
const EntryFormat = `# ledgernotes Entry Format

Each user owns a store resource on the ledger holding an ordered map from
Unix timestamps (seconds) to messages. The tools return that map decoded
into a flat list.

## Entry

` + "```" + `json
{"unixTimestamp": 1700000000, "content": "hello"}
` + "```" + `

- ` + "`" + `unixTimestamp` + "`" + ` is the map key, a non-negative integer.
- ` + "`" + `content` + "`" + ` is the message text after unwrapping any
  ` + "`" + `Leaf` + "`" + ` or ` + "`" + `Message` + "`" + ` variant wrappers.

## Ordering

Entries are sorted newest first. Entries sharing a timestamp keep the
order in which the ledger stores them.

## Missing data

A user without an address, without a store resource, or whose map sits
behind a table handle has an empty list. This is not an error.
Values that cannot be read as text are skipped.

## Address sources

- ` + "`" + `indexed` + "`" + `: found by the indexer lookup.
- ` + "`" + `ledger` + "`" + `: found by the on-chain view function.
- ` + "`" + `not_found` + "`" + `: neither lookup produced an address.
`
