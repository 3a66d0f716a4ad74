package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-app/internal/apperr"
	"chat-app/internal/models"
)

func TestNewTokenManagerRejectsEmptySecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	m, err := NewTokenManager("secret", 7*24*time.Hour)
	require.NoError(t, err)

	token, err := m.Issue(12, models.RoleAdmin)
	require.NoError(t, err)

	identity, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: 12, Role: models.RoleAdmin}, identity)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.Issue(1, models.RoleUser)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other, _ := NewTokenManager("other-secret", time.Hour)
	foreign, _ := other.Issue(1, models.RoleUser)
	_, err = m.Verify(foreign)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(req))

	req.Header.Set("Authorization", "Token abc")
	assert.Empty(t, TokenFromRequest(req))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password1")
	require.NoError(t, err)

	assert.NotEqual(t, "password1", hash)
	assert.True(t, ComparePassword("password1", hash))
	assert.False(t, ComparePassword("password2", hash))
}

func TestValidateDraft(t *testing.T) {
	valid := UserDraft{FullName: "Ada", Email: "ada@example.com", Mobile: "0123456789", Password: "password1"}

	cases := []struct {
		name            string
		mutate          func(d *UserDraft)
		requirePassword bool
		want            string
	}{
		{"valid", func(d *UserDraft) {}, true, ""},
		{"missing password", func(d *UserDraft) { d.Password = "" }, true, "All fields (name, email, mobile, password) are required"},
		{"update without password", func(d *UserDraft) { d.Password = "" }, false, ""},
		{"missing name on update", func(d *UserDraft) { d.FullName = "" }, false, "Name, email, and mobile are required"},
		{"bad email", func(d *UserDraft) { d.Email = "nope" }, true, "Please enter a valid email address"},
		{"short mobile", func(d *UserDraft) { d.Mobile = "12345" }, true, "Mobile number must be exactly 10 digits"},
		{"letters in mobile", func(d *UserDraft) { d.Mobile = "01234abcde" }, true, "Mobile number must be exactly 10 digits"},
		{"short password", func(d *UserDraft) { d.Password = "short" }, true, "Password must be at least 8 characters"},
		{"bad role", func(d *UserDraft) { d.Role = "root" }, true, "Role must be user or admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			err := ValidateDraft(d, tc.requirePassword)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tc.want, apperr.PublicMessage(err))
		})
	}
}
