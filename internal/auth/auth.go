// Package auth implements the OAuth2 password grant of spec §6: bind the
// submitted credentials against LDAP, then mint a scoped JWT the API layer
// can verify on every subsequent request.
package auth

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/golang-jwt/jwt/v5"
)

// signingMethod is fixed to HS256, matching the single shared secret model
// of the original service's JWT_SECRET_KEY setting.
var signingMethod = jwt.SigningMethodHS256

// AllScopes is granted to every successfully authenticated user; the
// original service had no per-user scope table, only a fixed list minted
// into every token (spec §6).
var AllScopes = []string{
	"deployers:read", "deployers:write",
	"deployments:read", "deployments:write",
	"dynamic_policies:read", "dynamic_policies:write",
	"networks:read", "networks:write",
	"policies:read", "policies:write",
	"revisions:read", "revisions:write",
	"services:read", "services:write",
	"targets:read", "targets:write",
	"tests:read", "tests:write",
}

// User is the authenticated principal carried in a token's claims.
type User struct {
	Username string
	Email    string
	FullName string
}

// Claims is the JWT payload minted by Issue and verified by Verify.
type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	FullName string   `json:"full_name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Scopes   []string `json:"scopes"`
}

// LDAPConfig names the directory and attribute mapping used to resolve a
// bound user's profile, mirroring settings.LDAP_* in the original service.
type LDAPConfig struct {
	ServerURI        string
	UserBindDNFormat string // e.g. "uid=%s,ou=people,dc=example,dc=com"
	UserSearchBase   string
	UserSearchFilter string // e.g. "(uid=%s)"
	UsernameAttr     string
	EmailAttr        string
	NameAttr         string
	InsecureSkipTLS  bool
}

// Authenticator binds credentials to LDAP and issues JWTs.
type Authenticator struct {
	ldapCfg  LDAPConfig
	secret   []byte
	tokenTTL time.Duration
}

func New(ldapCfg LDAPConfig, secret []byte, tokenTTL time.Duration) *Authenticator {
	if tokenTTL <= 0 {
		tokenTTL = 60 * time.Minute
	}
	return &Authenticator{ldapCfg: ldapCfg, secret: secret, tokenTTL: tokenTTL}
}

// Authenticate binds as the user with the supplied password and, on
// success, looks up their directory profile. A bind failure returns
// (User{}, false, nil); only a transport-level LDAP error is returned as
// err, matching the original authenticate_user's bool-or-user contract.
func (a *Authenticator) Authenticate(username, password string) (User, bool, error) {
	conn, err := a.dial()
	if err != nil {
		return User{}, false, err
	}
	defer conn.Close()

	bindDN := fmt.Sprintf(a.ldapCfg.UserBindDNFormat, username)
	if err := conn.Bind(bindDN, password); err != nil {
		return User{}, false, nil
	}

	filter := fmt.Sprintf(a.ldapCfg.UserSearchFilter, ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(
		a.ldapCfg.UserSearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{a.ldapCfg.UsernameAttr, a.ldapCfg.EmailAttr, a.ldapCfg.NameAttr},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil || len(res.Entries) == 0 {
		return User{Username: username}, true, nil
	}

	entry := res.Entries[0]
	fullName := entry.GetAttributeValue(a.ldapCfg.NameAttr)
	if fullName == "" {
		fullName = entry.GetAttributeValue(a.ldapCfg.UsernameAttr)
	}
	return User{
		Username: username,
		Email:    entry.GetAttributeValue(a.ldapCfg.EmailAttr),
		FullName: fullName,
	}, true, nil
}

func (a *Authenticator) dial() (*ldap.Conn, error) {
	if a.ldapCfg.InsecureSkipTLS {
		return ldap.DialURL(a.ldapCfg.ServerURI)
	}
	return ldap.DialURL(a.ldapCfg.ServerURI, ldap.DialWithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
}

// Issue mints a token for user carrying every scope in AllScopes, per
// spec §6 (the original service has no per-role scope narrowing).
func (a *Authenticator) Issue(user User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Scopes:   AllScopes,
	}
	token := jwt.NewWithClaims(signingMethod, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a bearer token, returning its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// HasScope reports whether claims grants the named scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
