package services

import (
	"context"
	"errors"

	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

var errCodeSpaceExhausted = errors.New("no free short code found")

// UniquenessResolver picks a short code that is free in the repository at
// the moment of the check. The insert that follows may still lose a race;
// LinkService handles that.
type UniquenessResolver struct {
	repo        ports.LinkRepository
	gen         CodeGenerator
	maxAttempts int
}

func NewUniquenessResolver(repo ports.LinkRepository, gen CodeGenerator, maxAttempts int) *UniquenessResolver {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &UniquenessResolver{repo: repo, gen: gen, maxAttempts: maxAttempts}
}

// Resolve returns alias if it is free, or a freshly generated code when
// alias is empty. A taken alias fails with domain.ErrAliasConflict.
func (r *UniquenessResolver) Resolve(ctx context.Context, alias string) (string, error) {
	if alias != "" {
		exists, err := r.repo.ExistsByShortCode(ctx, alias)
		if err != nil {
			return "", domain.NewPersistenceError("check alias", err)
		}
		if exists {
			return "", domain.ErrAliasConflict
		}
		return alias, nil
	}
	return r.generate(ctx)
}

func (r *UniquenessResolver) generate(ctx context.Context) (string, error) {
	for i := 0; i < r.maxAttempts; i++ {
		code, err := r.gen.NewCode(ctx)
		if err != nil {
			return "", domain.NewPersistenceError("generate code", err)
		}
		exists, err := r.repo.ExistsByShortCode(ctx, code)
		if err != nil {
			return "", domain.NewPersistenceError("check code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.NewPersistenceError("allocate code", errCodeSpaceExhausted)
}
