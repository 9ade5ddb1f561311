package fixture

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/opencart-qa/internal/model"
)

func TestRandomString(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := RandomString(8, true)
		assert.Len(t, s, 8)
		assert.True(t, strings.ContainsAny(s, SpecialChars), s)
	}

	plain := regexp.MustCompile(`^[A-Za-z0-9]{16}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, plain, RandomString(16, false))
	}

	assert.Empty(t, RandomString(0, true))
	assert.Len(t, RandomString(1, true), 1)
}

func TestRandomEmail(t *testing.T) {
	assert.Regexp(t, `^[a-z0-9]{10}@example\.com$`, RandomEmail())
}

func TestUniqueUsername(t *testing.T) {
	assert.Regexp(t, `^tester_[0-9]{6}$`, UniqueUsername("tester", 0))
	assert.Regexp(t, `^demo_[0-9]{4}$`, UniqueUsername("demo", 4))
}

func TestGeneratorIsReproducible(t *testing.T) {
	a := NewGenerator(rand.NewPCG(1, 2))
	b := NewGenerator(rand.NewPCG(1, 2))

	assert.Equal(t, a.RandomEmail(), b.RandomEmail())
	assert.Equal(t, a.RandomString(12, true), b.RandomString(12, true))
}

func TestNewRegisteredUser(t *testing.T) {
	u := NewRegisteredUser(model.RegisterUserConfig{FirstName: "Ada", LastName: "Lovelace"})

	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "Lovelace", u.LastName)
	assert.Regexp(t, `@example\.com$`, u.Email)
	assert.Regexp(t, `^[1-9][0-9]{9}$`, u.Telephone)
	assert.Len(t, u.Password, 12)
	assert.Equal(t, u.Password, u.ConfirmPassword)
	assert.True(t, strings.ContainsAny(u.Password, SpecialChars))

	generated := NewRegisteredUser(model.RegisterUserConfig{})
	assert.True(t, strings.HasPrefix(generated.FirstName, "Test"))
	assert.True(t, strings.HasPrefix(generated.LastName, "User"))
}
