package trie

// search holds the state of one bounded edit-distance walk.
// Each depth owns one DP row; rows are never shared between siblings.
type search struct {
	target  []rune
	max     int
	path    []rune
	results []Suggestion
}

// walk computes the row for node (reached through letter) from the parent's row,
// emits node when terminal and within range, and only descends while the
// row minimum still allows a match.
func (s *search) walk(node *Node, letter rune, prevRow []int) {
	s.path = append(s.path, letter)
	defer func() { s.path = s.path[:len(s.path)-1] }()

	columns := len(s.target) + 1
	row := make([]int, columns)
	row[0] = prevRow[0] + 1
	rowMin := row[0]

	for i := 1; i < columns; i++ {
		insertCost := row[i-1] + 1
		deleteCost := prevRow[i] + 1
		replaceCost := prevRow[i-1]
		if s.target[i-1] != letter {
			replaceCost++
		}
		row[i] = min(insertCost, deleteCost, replaceCost)
		if row[i] < rowMin {
			rowMin = row[i]
		}
	}

	if node.Terminal && row[columns-1] <= s.max {
		s.results = append(s.results, Suggestion{
			Word:      string(s.path),
			Distance:  row[columns-1],
			Frequency: node.Frequency,
		})
	}

	if rowMin > s.max {
		return
	}
	for r, child := range node.Children {
		s.walk(child, r, row)
	}
}
