// Package layout arranges model panels into display rows.
package layout

// rowSize is the widest row the grid ever uses.
const rowSize = 3

// Rows partitions items into display rows, preserving order:
//
//	N <= 3  one row
//	N == 4  2 + 2
//	N == 5  3 + 2
//	N == 6  3 + 3
//	N > 6   rows of 3, remainder last
//
// Concatenating the rows yields items again.
func Rows[T any](items []T) [][]T {
	n := len(items)
	switch {
	case n <= rowSize:
		return [][]T{items[:n:n]}
	case n == 4:
		return [][]T{items[:2:2], items[2:4:4]}
	}

	rows := make([][]T, 0, (n+rowSize-1)/rowSize)
	for start := 0; start < n; start += rowSize {
		end := min(start+rowSize, n)
		rows = append(rows, items[start:end:end])
	}
	return rows
}
