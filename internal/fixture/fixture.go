// Package fixture generates random test data for registration and login
// scenarios.
package fixture

import (
	"math/rand/v2"
	"strings"

	"github.com/nhle/opencart-qa/internal/model"
)

const (
	letters    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits     = "0123456789"
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"

	// SpecialChars is the set used when special characters are requested.
	SpecialChars = "!@#$&*?"

	// EmailDomain is the domain of generated addresses.
	EmailDomain = "example.com"
)

// Generator produces fixtures from a random source. The zero value uses
// the process-wide source.
type Generator struct {
	r *rand.Rand
}

// NewGenerator returns a Generator reading from src, for reproducible
// output in tests.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{r: rand.New(src)}
}

var defaultGenerator = &Generator{}

func (g *Generator) intN(n int) int {
	if g.r == nil {
		return rand.IntN(n)
	}
	return g.r.IntN(n)
}

func (g *Generator) pick(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.intN(len(alphabet))])
	}
	return b.String()
}

// RandomString returns length letters and digits. With special set, the
// alphabet includes SpecialChars and the result contains at least one of
// them. Non-positive lengths yield "".
func (g *Generator) RandomString(length int, special bool) string {
	if length <= 0 {
		return ""
	}
	if !special {
		return g.pick(letters+digits, length)
	}
	for {
		s := g.pick(letters+digits+SpecialChars, length)
		if strings.ContainsAny(s, SpecialChars) {
			return s
		}
	}
}

// RandomEmail returns ten lowercase letters or digits at EmailDomain.
func (g *Generator) RandomEmail() string {
	return g.pick(lowerAlnum, 10) + "@" + EmailDomain
}

// UniqueUsername appends an underscore and n random digits to base. A
// non-positive n means 6.
func (g *Generator) UniqueUsername(base string, n int) string {
	if n <= 0 {
		n = 6
	}
	return base + "_" + g.pick(digits, n)
}

// Telephone returns a ten digit number that does not start with 0.
func (g *Generator) Telephone() string {
	return g.pick("123456789", 1) + g.pick(digits, 9)
}

// NewRegisteredUser returns a user with a random email and a password
// containing a special character. Names come from tmpl when set.
func (g *Generator) NewRegisteredUser(tmpl model.RegisterUserConfig) model.RegisteredUser {
	first := tmpl.FirstName
	if first == "" {
		first = "Test" + g.pick(letters, 5)
	}
	last := tmpl.LastName
	if last == "" {
		last = "User" + g.pick(letters, 5)
	}
	phone := tmpl.Telephone
	if phone == "" {
		phone = g.Telephone()
	}
	password := g.RandomString(12, true)

	return model.RegisteredUser{
		FirstName:       first,
		LastName:        last,
		Email:           g.RandomEmail(),
		Telephone:       phone,
		Password:        password,
		ConfirmPassword: password,
	}
}

// RandomString calls RandomString on the default generator.
func RandomString(length int, special bool) string {
	return defaultGenerator.RandomString(length, special)
}

// RandomEmail calls RandomEmail on the default generator.
func RandomEmail() string {
	return defaultGenerator.RandomEmail()
}

// UniqueUsername calls UniqueUsername on the default generator.
func UniqueUsername(base string, n int) string {
	return defaultGenerator.UniqueUsername(base, n)
}

// NewRegisteredUser calls NewRegisteredUser on the default generator.
func NewRegisteredUser(tmpl model.RegisterUserConfig) model.RegisteredUser {
	return defaultGenerator.NewRegisteredUser(tmpl)
}
