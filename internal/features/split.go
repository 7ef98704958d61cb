package features

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions the indices of y into train and test sets so
// that every class keeps its share of the test fraction.
//
// The test set holds ceil(testSize*n) rows. Per-class test counts are the
// floor of each class's exact share, with leftover rows going to the
// largest remainders (ties: larger class, then lower id). Rows are
// shuffled within each class and the returned index lists are shuffled,
// all from rng.
func StratifiedSplit(y []int, numClasses int, testSize float64, rng *rand.Rand) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTestSize, testSize)
	}

	n := len(y)
	byClass := make([][]int, numClasses)
	for i, c := range y {
		if c < 0 || c >= numClasses {
			return nil, nil, fmt.Errorf("class id %d out of range [0,%d)", c, numClasses)
		}
		byClass[c] = append(byClass[c], i)
	}

	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	nTrain := n - nTest
	if nTest < numClasses || nTrain < numClasses {
		return nil, nil, fmt.Errorf("%w: %d train / %d test rows for %d classes",
			ErrSplitTooSmall, nTrain, nTest, numClasses)
	}

	counts := allocate(byClass, n, nTest)

	for c, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:counts[c]]...)
		train = append(train, idx[counts[c]:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })

	return train, test, nil
}

// allocate distributes nTest rows over the classes proportionally to size.
func allocate(byClass [][]int, n, nTest int) []int {
	type share struct {
		class int
		size  int
		rem   float64
	}

	counts := make([]int, len(byClass))
	shares := make([]share, len(byClass))
	assigned := 0
	for c, idx := range byClass {
		exact := float64(len(idx)) * float64(nTest) / float64(n)
		counts[c] = int(math.Floor(exact))
		assigned += counts[c]
		shares[c] = share{class: c, size: len(idx), rem: exact - float64(counts[c])}
	}

	sort.SliceStable(shares, func(i, j int) bool {
		a, b := shares[i], shares[j]
		if a.rem != b.rem {
			return a.rem > b.rem
		}
		if a.size != b.size {
			return a.size > b.size
		}
		return a.class < b.class
	})

	for left := nTest - assigned; left > 0; {
		progressed := false
		for _, s := range shares {
			if left == 0 {
				break
			}
			if counts[s.class] >= s.size-1 {
				continue
			}
			counts[s.class]++
			left--
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return counts
}
