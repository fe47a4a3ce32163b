package milp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyProblem is returned when a problem without columns is written.
var ErrEmptyProblem = errors.New("milp: problem has no columns")

// WriteLP writes p in CPLEX LP format. Every column is listed in the
// objective in index order so that readers numbering columns by first
// appearance (GLPK) keep the problem's column order.
func WriteLP(w io.Writer, p *Problem) error {
	if len(p.Vars) == 0 {
		return ErrEmptyProblem
	}
	cols := LPNames(p)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\ Problem: %s\n", sanitizeComment(p.Name))
	fmt.Fprintln(bw, "Minimize")
	obj := make([]float64, len(p.Vars))
	for _, t := range p.Objective {
		obj[t.Col] += t.Coef
	}
	fmt.Fprint(bw, " obj:")
	for j, c := range obj {
		writeTerm(bw, c, cols[j], j == 0)
		if (j+1)%8 == 0 {
			fmt.Fprint(bw, "\n     ")
		}
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	rows := uniqueNames(len(p.Rows), func(i int) string { return p.Rows[i].Name }, "r")
	for i, r := range p.Rows {
		fmt.Fprintf(bw, " %s:", rows[i])
		if len(r.Expr) == 0 {
			writeTerm(bw, 0, cols[0], true)
		}
		for k, t := range r.Expr {
			writeTerm(bw, t.Coef, cols[t.Col], k == 0)
		}
		fmt.Fprintf(bw, " %s %s\n", r.Sense, formatNum(r.RHS))
	}

	fmt.Fprintln(bw, "Bounds")
	for j, v := range p.Vars {
		if v.Domain == Free {
			fmt.Fprintf(bw, " %s free\n", cols[j])
		}
	}
	var bins []string
	for j, v := range p.Vars {
		if v.Domain == Binary {
			bins = append(bins, cols[j])
		}
	}
	if len(bins) > 0 {
		fmt.Fprintln(bw, "Binary")
		for _, b := range bins {
			fmt.Fprintf(bw, " %s\n", b)
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// LPNames returns the LP-format-safe column names used by WriteLP.
func LPNames(p *Problem) []string {
	return uniqueNames(len(p.Vars), func(i int) string { return p.Vars[i].Name }, "x")
}

func writeTerm(w io.Writer, coef float64, name string, first bool) {
	sign := "+"
	if coef < 0 || (coef == 0 && math.Signbit(coef)) {
		sign = "-"
	}
	abs := math.Abs(coef)
	if first && sign == "+" {
		fmt.Fprintf(w, " %s %s", formatNum(abs), name)
		return
	}
	fmt.Fprintf(w, " %s %s %s", sign, formatNum(abs), name)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func uniqueNames(n int, name func(int) string, fallback string) []string {
	out := make([]string, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		s := sanitizeName(name(i))
		if s == "" {
			s = fallback + strconv.Itoa(i+1)
		}
		if _, dup := seen[s]; dup {
			s = s + "#" + strconv.Itoa(i+1)
		}
		seen[s] = struct{}{}
		out[i] = s
	}
	return out
}

// sanitizeName maps a column or row name onto the LP-format character set.
// Brackets become parentheses so "P[g1,3]" is written as "P(g1,3)".
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '[':
			b.WriteRune('(')
		case r == ']':
			b.WriteRune(')')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("!\"#$%&()/,.;?@_`'{}|~", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out != "" && (out[0] == '.' || (out[0] >= '0' && out[0] <= '9')) {
		out = "_" + out
	}
	if len(out) > 255 {
		out = out[:255]
	}
	return out
}

func sanitizeComment(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
