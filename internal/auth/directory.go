package auth

import (
	"strings"
	"sync"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Directory maps usernames to identities for the lifetime of the process.
// The first login with a name creates the user, later logins get it back.
type Directory struct {
	mu     sync.Mutex
	users  map[string]domain.User
	admins map[string]struct{}
}

func NewDirectory(adminUsernames []string) *Directory {
	return &Directory{
		users: make(map[string]domain.User),
		admins: lo.SliceToMap(adminUsernames, func(name string) (string, struct{}) {
			return strings.TrimSpace(name), struct{}{}
		}),
	}
}

func (d *Directory) LookupOrCreate(username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[username]; ok {
		return u, nil
	}
	_, isAdmin := d.admins[username]
	u, err := domain.NewUser(username, isAdmin)
	if err != nil {
		return domain.User{}, err
	}
	d.users[username] = *u
	log.Info().Str("module", "auth.directory").Str("user", string(u.ID)).Str("username", username).
		Bool("admin", isAdmin).Msg("user created")
	return *u, nil
}

func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}
