package winf

// OutputStyle defines the different formatting styles for the output.
type OutputStyle int

const (
	// StyleBlockSorted is the default style. It sorts entries within nested
	// blocks but preserves the top-level document order.
	StyleBlockSorted OutputStyle = iota

	// StyleAllSorted sorts entries at all levels alphabetically, ensuring a
	// canonical, deterministic output.
	StyleAllSorted

	// StyleStreaming outputs entries in the exact order they appear,
	// without any sorting.
	StyleStreaming
)

const (
	// StyleDefault is an alias for StyleBlockSorted.
	StyleDefault = StyleBlockSorted
)

// FormatOptions provides options for controlling the formatter's output.
type FormatOptions struct {
	Style      OutputStyle
	EmptyLines bool // If true, adds empty lines between top-level blocks.
}
