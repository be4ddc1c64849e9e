package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// ClientResolver turns the free-text identifier typed by an administrator into a client.
// Lookup order: exact id, exact email, case-insensitive "first last". The first stage
// with a single hit wins. Several clients sharing a name resolve to nobody.
type ClientResolver struct {
	dir ports.ClientDirectory
}

func NewClientResolver(dir ports.ClientDirectory) *ClientResolver {
	return &ClientResolver{dir: dir}
}

func (r *ClientResolver) Resolve(ctx context.Context, identifier string) (*domain.Client, error) {
	ident := strings.TrimSpace(identifier)
	if ident == "" {
		return nil, fmt.Errorf("%w: empty client identifier", domain.ErrClientNotFound)
	}

	c, err := r.dir.FindClientByID(ctx, ident)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, err
	}

	c, err = r.dir.FindClientByEmail(ctx, ident)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, err
	}

	matches, err := r.dir.FindClientsByFullName(ctx, ident)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: no client matches %q", domain.ErrClientNotFound, ident)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d clients are named %q", domain.ErrClientNotFound, len(matches), ident)
	}
}
