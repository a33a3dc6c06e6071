package model

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Person is a military member as captured at login or checkout time.
type Person struct {
	BM      string `json:"bm"`
	Name    string `json:"name"`
	WarName string `json:"warName"`
	Rank    string `json:"rank"`
}

// Ranks is the roster of ranks an operator can pick from.
var Ranks = []string{
	"Cel", "Ten-Cel", "Maj", "Cap", "1º Ten", "2º Ten", "Asp",
	"Aluno CHO", "Subten", "1º Sgt", "2º Sgt", "3º Sgt", "Cb", "Sd",
}

// ValidRank reports whether rank is part of the roster.
func ValidRank(rank string) bool {
	return slices.Contains(Ranks, rank)
}

// NewPerson captures an identity from the login form fields, formatting the
// service number and deriving the war name.
func NewPerson(rank, name, bm string) Person {
	name = strings.TrimSpace(name)
	return Person{
		BM:      FormatBM(bm),
		Name:    name,
		WarName: DeriveWarName(name),
		Rank:    strings.TrimSpace(rank),
	}
}

// Complete reports whether the service number, name and rank are all set.
func (p Person) Complete() bool {
	return p.BM != "" && p.Name != "" && p.Rank != ""
}

// Display renders the person as "rank war-name".
func (p Person) Display() string {
	return strings.TrimSpace(p.Rank + " " + p.WarName)
}

// DeriveWarName extracts the war name from a full name: every whitespace
// separated token written entirely in upper case with at least two
// characters, joined by single spaces. Names without such tokens fall back to
// their last token.
func DeriveWarName(fullName string) string {
	tokens := strings.Fields(fullName)
	if len(tokens) == 0 {
		return ""
	}

	var upper []string
	for _, tok := range tokens {
		if tok == strings.ToUpper(tok) && utf8.RuneCountInString(tok) >= 2 {
			upper = append(upper, tok)
		}
	}
	if len(upper) > 0 {
		return strings.Join(upper, " ")
	}
	return tokens[len(tokens)-1]
}

// bmDigits is the number of digits in a service number.
const bmDigits = 7

// BMDigits returns the digits of a service number, at most seven.
func BMDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == bmDigits {
			break
		}
	}
	return b.String()
}

// FormatBM renders a service number as 123.456-7. Partial input is formatted
// as far as it goes.
func FormatBM(value string) string {
	d := BMDigits(value)
	switch {
	case len(d) > 6:
		return d[:3] + "." + d[3:6] + "-" + d[6:]
	case len(d) > 3:
		return d[:3] + "." + d[3:]
	default:
		return d
	}
}
