package session

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const actorClaim = "actor"

// ActorGuest marks a session that has not logged in yet. Guests can browse
// and fill a cart; the actor is upgraded on login.
const ActorGuest = "invitado"

// Manager signs and verifies the ticket carried in the session cookie. The
// ticket binds a session id to the actor kind it authenticated as.
type Manager struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (m Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue mints a signed ticket for the given session id and actor.
func (m Manager) Issue(sessionID, actor string) (string, time.Time, error) {
	if len(m.Secret) == 0 {
		return "", time.Time{}, errors.New("session: signing secret not configured")
	}
	if sessionID == "" {
		return "", time.Time{}, errors.New("session: empty session id")
	}
	now := m.now()
	expiresAt := now.Add(m.TTL)
	token, err := jwt.NewBuilder().
		Subject(sessionID).
		Claim(actorClaim, actor).
		IssuedAt(now).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies a ticket and returns the session id and actor it carries.
func (m Manager) Parse(raw string) (sessionID, actor string, err error) {
	if len(m.Secret) == 0 {
		return "", "", errors.New("session: signing secret not configured")
	}
	token, err := jwt.ParseString(raw,
		jwt.WithKey(jwa.HS256, m.Secret),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		return "", "", err
	}
	sessionID = token.Subject()
	if sessionID == "" {
		return "", "", errors.New("session: ticket missing subject")
	}
	actor = ActorGuest
	if claim, ok := token.Get(actorClaim); ok {
		if value, ok := claim.(string); ok && value != "" {
			actor = value
		}
	}
	return sessionID, actor, nil
}
