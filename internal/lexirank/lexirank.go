// Package lexirank generates sortable string ranks so PolicyTerm ordering
// can be edited without renumbering every sibling term.
package lexirank

import "math"

const alphabetSize = 26

// Between returns a rank string that sorts strictly between first and
// second. first must sort lower than second.
func Between(first, second string) string {
	if first >= second {
		panic("lexirank: first rank must sort lower than second rank")
	}

	for len(first) != len(second) {
		if len(first) > len(second) {
			second += "a"
		} else {
			first += "a"
		}
	}

	firstCodes := []rune(first)
	secondCodes := []rune(second)

	difference := 0.0
	n := len(firstCodes)
	for i := n - 1; i >= 0; i-- {
		fc := int(firstCodes[i])
		sc := int(secondCodes[i])
		if sc < fc {
			sc += alphabetSize
			secondCodes[i-1]--
		}
		pow := math.Pow(alphabetSize, float64(n-i-1))
		difference += float64(sc-fc) * pow
	}

	if difference <= 1 {
		return first + string(rune('a'+alphabetSize/2))
	}

	diff := int(difference) / 2
	newChars := make([]rune, n)
	offset := 0
	for i := 0; i < n; i++ {
		diffInSymbols := (diff / int(math.Pow(alphabetSize, float64(i)))) % alphabetSize
		code := int(firstCodes[n-i-1]) + diffInSymbols + offset
		offset = 0
		if code > int('z') {
			offset++
			code -= alphabetSize
		}
		newChars[i] = rune(code)
	}
	// reverse
	for i, j := 0, len(newChars)-1; i < j; i, j = i+1, j-1 {
		newChars[i], newChars[j] = newChars[j], newChars[i]
	}
	return string(newChars)
}

// First returns the rank to use for the very first term in an empty list.
func First() string { return "n" }

// Append returns a rank that sorts after last (the highest rank currently
// in use), for adding a term at the end of the list.
func Append(last string) string {
	if last == "" {
		return First()
	}
	return Between(last, last+string(rune('z'))+string(rune('z')))
}
