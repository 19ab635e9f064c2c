// Package profileid validates human-chosen public profile identifiers:
// format, reserved words, and uniqueness across every collection that
// may hold one.
package profileid

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
)

var (
	pattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)
	invalidChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// reserved identifiers are always invalid regardless of availability.
var reserved = map[string]struct{}{
	"admin": {}, "administrator": {}, "operator": {}, "root": {},
	"api": {}, "www": {}, "mail": {}, "system": {},
	"support": {}, "help": {}, "contact": {}, "info": {},
	"careerbox": {}, "career-box": {}, "careerbox_official": {},
	"jobs": {}, "courses": {}, "search": {}, "settings": {},
	"profile": {}, "login": {}, "signup": {}, "dashboard": {},
}

const (
	msgRequired  = "Profile ID is required."
	msgFormat    = "Profile IDs must be 3-30 characters using only letters, numbers, hyphens and underscores."
	msgReserved  = "This profile ID is reserved and cannot be used."
	msgTaken     = "This profile ID is already taken."
	msgOwn       = "This profile ID already belongs to you."
	msgAvailable = "This profile ID is available."
)

type Validator struct {
	directory store.DirectoryStore
	logger    *slog.Logger
	rand      *rand.Rand
}

func NewValidator(directory store.DirectoryStore, logger *slog.Logger) *Validator {
	return &Validator{
		directory: directory,
		logger:    logger.With(slog.String("component", "profileid")),
		rand:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Validate runs the full check for one candidate. Reserved-word
// rejection takes precedence over uniqueness. A directory collection
// being unreachable degrades the check rather than failing it: the
// collection is treated as conflict-free and the error is logged
// (fail-open; the write path owns the authoritative constraint).
func (v *Validator) Validate(ctx context.Context, candidate, requestingID string) protocol.ProfileIDResult {
	if candidate == "" {
		return protocol.ProfileIDResult{IsValid: false, Message: msgRequired}
	}
	if !pattern.MatchString(candidate) {
		return protocol.ProfileIDResult{
			IsValid:     false,
			Message:     msgFormat,
			Suggestions: v.Suggestions(sanitize(candidate)),
		}
	}
	if _, isReserved := reserved[strings.ToLower(candidate)]; isReserved {
		return protocol.ProfileIDResult{IsValid: false, Message: msgReserved}
	}

	ownedBySelf := false
	for _, collection := range store.ProfileIDCollections {
		owner, err := v.directory.ProfileIDOwner(ctx, collection, candidate)
		if err != nil {
			v.logger.Warn("profile id probe degraded",
				slog.String("collection", string(collection)),
				slog.Any("error", err),
			)
			continue
		}
		switch owner {
		case "":
		case requestingID:
			ownedBySelf = true
		default:
			return protocol.ProfileIDResult{
				IsValid:     false,
				Message:     msgTaken,
				Suggestions: v.Suggestions(candidate),
			}
		}
	}
	if ownedBySelf {
		return protocol.ProfileIDResult{IsValid: true, Message: msgOwn}
	}
	return protocol.ProfileIDResult{IsValid: true, Message: msgAvailable}
}

// Suggestions derives up to five alternatives from a base identifier:
// sequential numeric suffixes, one random suffix, and _user/_profile
// variants for longer bases.
func (v *Validator) Suggestions(base string) []string {
	if base == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if len(out) >= 5 || len(s) > 30 {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for i := 1; i <= 5; i++ {
		add(fmt.Sprintf("%s%d", base, i))
	}
	add(base + "_" + v.randomSuffix(4))
	if len(base) > 3 {
		add(base + "_user")
		add(base + "_profile")
	}
	return out
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (v *Validator) randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[v.rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

// sanitize turns arbitrary input into a usable suggestion base.
func sanitize(raw string) string {
	s := invalidChars.ReplaceAllString(raw, "")
	if len(s) > 26 {
		s = s[:26] // leave room for suffixes
	}
	if len(s) < 3 {
		s = "user_" + s
	}
	return s
}
