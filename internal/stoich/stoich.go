// internal/stoich/stoich.go
// Package stoich balances chemical reaction equations with exact rational
// arithmetic. It backs the instant-answer fast path for inputs shaped like
// "Fe + O2 -> Fe2O3".
package stoich

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// FailureMessage is the fixed copy shown when an equation cannot be
// balanced. It is part of the visible answer, not an error surface.
const FailureMessage = "Chưa cân bằng được, hãy kiểm tra công thức hoặc nhập dạng 'A + B -> C + D'."

// ErrCannotBalance indicates the conservation constraints have no positive
// integer solution for the given species.
var ErrCannotBalance = errors.New("equation cannot be balanced")

// IsEquation reports whether text looks like a reaction equation, i.e.
// contains a reaction arrow. The dispatcher uses this to pick the balance
// fast path.
func IsEquation(text string) bool {
	return strings.Contains(text, "->") || strings.Contains(text, "→")
}

// Balance parses an equation like "Fe + O2 -> Fe2O3" and returns the
// balanced form "Cân bằng: 4 Fe + 3 O2 -> 2 Fe2O3".
func Balance(equation string) (string, error) {
	equation = strings.ReplaceAll(equation, "→", "->")
	sides := strings.Split(equation, "->")
	if len(sides) != 2 {
		return "", fmt.Errorf("%w: expected exactly one reaction arrow", ErrCannotBalance)
	}

	reactants, err := parseSide(sides[0])
	if err != nil {
		return "", err
	}
	products, err := parseSide(sides[1])
	if err != nil {
		return "", err
	}

	coeffs, err := solve(reactants, products)
	if err != nil {
		return "", err
	}

	left := formatSide(reactants, coeffs[:len(reactants)])
	right := formatSide(products, coeffs[len(reactants):])
	return fmt.Sprintf("Cân bằng: %s -> %s", left, right), nil
}

// HintStoichiometry returns the quick-reference constants shown alongside a
// balanced equation.
func HintStoichiometry() string {
	return "Gợi ý nhanh:\n" +
		"- n = m / M (mol = khối lượng / khối lượng mol)\n" +
		"- V = n * 24.79 (L ở ĐKTC)\n" +
		"- C_M = n / V (mol/L)"
}

// species is one formula together with its parsed element counts.
type species struct {
	formula  string
	elements map[string]int
}

func parseSide(side string) ([]species, error) {
	var out []species
	for _, part := range strings.Split(side, "+") {
		formula := strings.TrimSpace(part)
		if formula == "" {
			return nil, fmt.Errorf("%w: empty species", ErrCannotBalance)
		}
		elements, err := ParseFormula(formula)
		if err != nil {
			return nil, err
		}
		out = append(out, species{formula: formula, elements: elements})
	}
	return out, nil
}

// ParseFormula converts a chemical formula such as "(C17H35COO)3C3H5" into
// a map of element symbol to atom count. Nested parentheses are supported.
func ParseFormula(formula string) (map[string]int, error) {
	counts, rest, err := parseGroup(formula, 0)
	if err != nil {
		return nil, err
	}
	if rest != len(formula) {
		return nil, fmt.Errorf("%w: unexpected %q in formula %q", ErrCannotBalance, formula[rest:], formula)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: formula %q has no elements", ErrCannotBalance, formula)
	}
	return counts, nil
}

// parseGroup parses element/group tokens starting at pos until the end of
// the string or a closing parenthesis, returning counts and the position it
// stopped at.
func parseGroup(formula string, pos int) (map[string]int, int, error) {
	counts := make(map[string]int)
	for pos < len(formula) {
		c := formula[pos]
		switch {
		case c == ')':
			return counts, pos, nil
		case c == '(':
			inner, next, err := parseGroup(formula, pos+1)
			if err != nil {
				return nil, 0, err
			}
			if next >= len(formula) || formula[next] != ')' {
				return nil, 0, fmt.Errorf("%w: unclosed parenthesis in %q", ErrCannotBalance, formula)
			}
			mult, next := parseCount(formula, next+1)
			for el, n := range inner {
				counts[el] += n * mult
			}
			pos = next
		case c >= 'A' && c <= 'Z':
			end := pos + 1
			if end < len(formula) && formula[end] >= 'a' && formula[end] <= 'z' {
				end++
			}
			el := formula[pos:end]
			mult, next := parseCount(formula, end)
			counts[el] += mult
			pos = next
		default:
			return nil, 0, fmt.Errorf("%w: unexpected character %q in formula %q", ErrCannotBalance, string(c), formula)
		}
	}
	return counts, pos, nil
}

func parseCount(formula string, pos int) (int, int) {
	start := pos
	for pos < len(formula) && formula[pos] >= '0' && formula[pos] <= '9' {
		pos++
	}
	if pos == start {
		return 1, pos
	}
	n := 0
	for _, d := range formula[start:pos] {
		n = n*10 + int(d-'0')
	}
	if n == 0 {
		n = 1
	}
	return n, pos
}

// solve finds the smallest positive integer coefficients satisfying element
// conservation, reactants first then products.
func solve(reactants, products []species) ([]int64, error) {
	all := append(append([]species{}, reactants...), products...)

	elementSet := make(map[string]struct{})
	for _, sp := range all {
		for el := range sp.elements {
			elementSet[el] = struct{}{}
		}
	}
	elements := make([]string, 0, len(elementSet))
	for el := range elementSet {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	// Conservation matrix: one row per element, one column per species;
	// product columns are negated so the balanced vector is a nullspace
	// element.
	rows := len(elements)
	cols := len(all)
	matrix := make([][]*big.Rat, rows)
	for i, el := range elements {
		matrix[i] = make([]*big.Rat, cols)
		for j, sp := range all {
			n := int64(sp.elements[el])
			if j >= len(reactants) {
				n = -n
			}
			matrix[i][j] = big.NewRat(n, 1)
		}
	}

	coeffs, err := nullspaceVector(matrix, cols)
	if err != nil {
		return nil, err
	}

	ints, err := toPositiveIntegers(coeffs)
	if err != nil {
		return nil, err
	}
	return ints, nil
}

// nullspaceVector row-reduces the matrix and solves for a one-dimensional
// nullspace, fixing the single free variable at 1.
func nullspaceVector(matrix [][]*big.Rat, cols int) ([]*big.Rat, error) {
	rows := len(matrix)
	pivotCols := make([]int, 0, rows)
	r := 0
	for c := 0; c < cols && r < rows; c++ {
		pivot := -1
		for i := r; i < rows; i++ {
			if matrix[i][c].Sign() != 0 {
				pivot = i
				break
			}
		}
		if pivot == -1 {
			continue
		}
		matrix[r], matrix[pivot] = matrix[pivot], matrix[r]

		inv := new(big.Rat).Inv(matrix[r][c])
		for j := c; j < cols; j++ {
			matrix[r][j].Mul(matrix[r][j], inv)
		}
		for i := 0; i < rows; i++ {
			if i == r || matrix[i][c].Sign() == 0 {
				continue
			}
			factor := new(big.Rat).Set(matrix[i][c])
			for j := c; j < cols; j++ {
				term := new(big.Rat).Mul(factor, matrix[r][j])
				matrix[i][j].Sub(matrix[i][j], term)
			}
		}
		pivotCols = append(pivotCols, c)
		r++
	}

	if len(pivotCols) != cols-1 {
		return nil, fmt.Errorf("%w: conservation system is %s", ErrCannotBalance,
			map[bool]string{true: "underdetermined", false: "overdetermined"}[len(pivotCols) < cols-1])
	}

	// The free column is the one not used as a pivot.
	isPivot := make(map[int]bool, len(pivotCols))
	for _, c := range pivotCols {
		isPivot[c] = true
	}
	free := -1
	for c := 0; c < cols; c++ {
		if !isPivot[c] {
			free = c
			break
		}
	}

	coeffs := make([]*big.Rat, cols)
	coeffs[free] = big.NewRat(1, 1)
	for i, c := range pivotCols {
		val := new(big.Rat).Neg(matrix[i][free])
		coeffs[c] = val
	}
	return coeffs, nil
}

// toPositiveIntegers scales rational coefficients to the smallest positive
// integer vector.
func toPositiveIntegers(coeffs []*big.Rat) ([]int64, error) {
	lcm := big.NewInt(1)
	for _, c := range coeffs {
		den := c.Denom()
		gcd := new(big.Int).GCD(nil, nil, lcm, den)
		lcm.Div(new(big.Int).Mul(lcm, den), gcd)
	}

	ints := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		scaled := new(big.Rat).Mul(c, new(big.Rat).SetInt(lcm))
		ints[i] = scaled.Num() // denominator is 1 after scaling
	}

	gcd := new(big.Int).Abs(ints[0])
	for _, n := range ints[1:] {
		gcd.GCD(nil, nil, gcd, new(big.Int).Abs(n))
	}
	if gcd.Sign() == 0 {
		return nil, fmt.Errorf("%w: degenerate solution", ErrCannotBalance)
	}

	out := make([]int64, len(ints))
	for i, n := range ints {
		v := new(big.Int).Div(n, gcd)
		if v.Sign() <= 0 {
			return nil, fmt.Errorf("%w: no positive solution", ErrCannotBalance)
		}
		if !v.IsInt64() {
			return nil, fmt.Errorf("%w: coefficients out of range", ErrCannotBalance)
		}
		out[i] = v.Int64()
	}
	return out, nil
}

func formatSide(side []species, coeffs []int64) string {
	parts := make([]string, len(side))
	for i, sp := range side {
		parts[i] = fmt.Sprintf("%d %s", coeffs[i], sp.formula)
	}
	return strings.Join(parts, " + ")
}
