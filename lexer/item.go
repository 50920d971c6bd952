// SPDX-License-Identifier: MIT
package lexer

type (
	// ItemID int holding an identifier for the Item tokens
	ItemID int

	// Item type holding token, value & item type of scanned rune
	Item struct {
		Err error
		Val []byte // The value of this Item, quotes included for quoted values.
		Pos int    // The starting position (in bytes) of this Item.
		ID  ItemID // The type of this Item

		// Quoted marks an ItemValue read from a quoted string.
		Quoted bool
	}
)

// iota is used to define an incrementing number sequence for const
// declarations
const (
	_             = iota // Consume 0 to start actual numbering at 1.
	ItemError            // Notify occurrence of an `error`.
	ItemSplitter         // References the configured splitter.
	ItemEOF              // End of the file
	ItemValue            // Node key.
	ItemEndMarker        // References the configured end marker.
)

var itemNames = map[ItemID]string{
	ItemError:     "error",
	ItemSplitter:  "splitter",
	ItemEOF:       "eof",
	ItemValue:     "value",
	ItemEndMarker: "end marker",
}

// String is the fmt.Stringer implementation for ItemID.
func (i ItemID) String() string {
	if name, ok := itemNames[i]; ok {
		return name
	}

	return "unknown"
}
