// Package listview provides a virtual scrolling list for Bubble Tea TUI
// applications.
//
// Layout is delegated to a window.Calculator working in terminal lines:
// rows may render to any number of lines, and each rendered row's height is
// fed back to the calculator so offsets converge on the real layout. Only the
// rows in the calculator's visible range (plus overscan) are rendered.
//
// Features:
//   - Keyboard navigation (up/down, pgup/pgdn, home/end, j/k) via bubbles/key
//   - Mouse wheel scrolling independent of the selection
//   - NeedMoreMsg when the visible range approaches the end of a list that
//     has more items upstream
package listview
