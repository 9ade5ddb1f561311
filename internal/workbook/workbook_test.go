package workbook

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/opencart-qa/internal/model"
)

func TestAppendRegisteredUserCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures", "registered_users.xlsx")
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, AppendRegisteredUser(path, model.RegisteredUser{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Telephone: "5550100", Password: "pw1!", ConfirmPassword: "pw1!", CreatedAt: at,
	}))
	require.NoError(t, AppendRegisteredUser(path, model.RegisteredUser{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
		Telephone: "5550101", Password: "pw2?", ConfirmPassword: "pw2?", CreatedAt: at,
	}))

	rows, err := Sheet{Path: path}.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RegisteredUserHeaders, rows[0])
	assert.Equal(t, []string{"Ada", "Lovelace", "ada@example.com", "5550100", "pw1!", "pw1!", "2025-03-10 09:30:00"}, rows[1])
	assert.Equal(t, "alan@example.com", rows[2][2])
}

func TestAppendUserData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_data.xlsx")

	require.NoError(t, AppendUserData(path, model.UserData{BusinessName: "Demo", Username: "tester_123456", Password: "&lackMan123!"}))

	rows, err := Sheet{Path: path}.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, UserDataHeaders, rows[0])
	assert.Equal(t, []string{"Demo", "tester_123456", "&lackMan123!"}, rows[1])
}

func TestAppendWithoutHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	s := Sheet{Path: path}

	require.NoError(t, s.Append("a", 1))
	require.NoError(t, s.Append("b", 2))

	rows, err := s.Rows()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}}, rows)
}

func TestAppendRequiresPath(t *testing.T) {
	assert.Error(t, Sheet{}.Append("x"))
}
