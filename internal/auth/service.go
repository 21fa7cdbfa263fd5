package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/minnesingerthule/VRIL-Storage/internal/drive"
	"github.com/minnesingerthule/VRIL-Storage/internal/models"
	"gorm.io/gorm"
)

// RootEnsurer provides the root folder bootstrap so that registration
// can leave every new user with a working tree. Implemented by the drive
// service.
type RootEnsurer interface {
	EnsureRoot(ctx context.Context, userID uint) (*models.Folder, error)
}

// Service handles registration, credential checks and token resolution.
type Service struct {
	db     *gorm.DB
	tokens *TokenManager
	roots  RootEnsurer
}

func NewService(db *gorm.DB, tokens *TokenManager, roots RootEnsurer) *Service {
	return &Service{db: db, tokens: tokens, roots: roots}
}

// Register creates a user with a hashed password and a root folder.
// Email matching is a case-sensitive exact match.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: email already registered", drive.ErrConflict)
	}

	hash, err := HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The count above races concurrent registrations; the unique
		// index on email is the real arbiter.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", drive.ErrConflict)
		}
		return nil, err
	}

	if _, err := s.roots.EnsureRoot(ctx, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate exchanges credentials for a signed bearer token.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: bad credentials", drive.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}

	if !CheckPassword(user.PasswordHash, rawPassword) {
		return "", fmt.Errorf("%w: bad credentials", drive.ErrUnauthorized)
	}

	return s.tokens.Issue(user.ID)
}

// ResolveToken validates a bearer token and loads the user it names.
func (s *Service) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drive.ErrUnauthorized, err)
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: unknown user", drive.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
