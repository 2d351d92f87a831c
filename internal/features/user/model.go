package user

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
)

var emailCheck = validator.New()

// User is a student or tutor account.
type User struct {
	types.BaseModel

	FullName     string      `gorm:"type:varchar(100);not null;column:full_name" json:"fullName"`
	Email        string      `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Bio          string      `gorm:"type:text;not null;default:''" json:"bio"`
	PasswordHash string      `gorm:"type:varchar(255);column:password_hash" json:"-"`
	Role         access.Role `gorm:"type:varchar(20);not null;index;column:role" json:"role"`
	GoogleID     *string     `gorm:"type:varchar(255);uniqueIndex;column:google_id" json:"-"`
	Active       bool        `gorm:"not null;default:true;column:is_active" json:"isActive"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// Identity returns the user's access identity.
func (u User) Identity() access.Identity {
	return access.Identity{UserID: u.ID, Role: u.Role}
}

// ComparePassword checks password against the stored hash.
func (u User) ComparePassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateInput carries data for creating a new user. Password may be empty for
// accounts created through Google sign-in.
type CreateInput struct {
	FullName string
	Email    string
	Password string
	Role     access.Role
	GoogleID *string
}

// Create inserts a user with a bcrypt-hashed password.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (User, error) {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return User{}, ErrMissingName
	}
	if !input.Role.Valid() {
		return User{}, ErrInvalidRole
	}

	usr := User{
		FullName: name,
		Email:    NormalizeEmail(input.Email),
		Role:     input.Role,
		GoogleID: input.GoogleID,
		Active:   true,
	}

	if input.GoogleID == nil || input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return User{}, err
		}
		usr.PasswordHash = hash
	}

	if err := db.WithContext(ctx).Create(&usr).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return usr, nil
}

// Get retrieves a user by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (User, error) {
	var usr User
	if err := db.WithContext(ctx).First(&usr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usr, ErrUserNotFound
		}
		return usr, err
	}
	return usr, nil
}

// GetByEmail retrieves a user by normalized email.
func GetByEmail(ctx context.Context, db *gorm.DB, email string) (User, error) {
	var usr User
	if err := db.WithContext(ctx).First(&usr, "email = ?", NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usr, ErrUserNotFound
		}
		return usr, err
	}
	return usr, nil
}

// GetByGoogleID retrieves a user linked to a Google account.
func GetByGoogleID(ctx context.Context, db *gorm.DB, googleID string) (User, error) {
	var usr User
	if err := db.WithContext(ctx).First(&usr, "google_id = ?", googleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usr, ErrUserNotFound
		}
		return usr, err
	}
	return usr, nil
}

// LinkGoogle attaches a Google account id to an existing user.
func LinkGoogle(ctx context.Context, db *gorm.DB, id uuid.UUID, googleID string) error {
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("google_id", googleID).Error
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address is well formed.
func ValidEmail(email string) bool {
	return emailCheck.Var(email, "required,email") == nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Patch is a profile update made by the account owner. Nil fields are left
// untouched.
type Patch struct {
	FullName *string
	Email    *string
	Bio      *string
}

// Assignments validates the patch and returns its column updates.
func (p Patch) Assignments() (map[string]any, error) {
	updates := make(map[string]any)

	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return nil, ErrMissingName
		}
		updates["full_name"] = name
	}
	if p.Email != nil {
		email := NormalizeEmail(*p.Email)
		if !ValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		updates["email"] = email
	}
	if p.Bio != nil {
		updates["bio"] = strings.TrimSpace(*p.Bio)
	}

	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}
	return updates, nil
}

// UpdateProfile applies patch to the user and returns the stored result.
func UpdateProfile(ctx context.Context, db *gorm.DB, id uuid.UUID, patch Patch) (User, error) {
	updates, err := patch.Assignments()
	if err != nil {
		return User{}, err
	}

	if _, err := Get(ctx, db, id); err != nil {
		return User{}, err
	}
	if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return Get(ctx, db, id)
}

// ChangePassword replaces the password once current matches the stored one.
// Accounts created through Google sign-in have no password to match.
func ChangePassword(ctx context.Context, db *gorm.DB, id uuid.UUID, current, next string) error {
	usr, err := Get(ctx, db, id)
	if err != nil {
		return err
	}
	if !usr.ComparePassword(current) {
		return ErrWrongPassword
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// Resolver loads identities for the auth middleware.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveIdentity returns the stored identity for the token subject. The
// stored role wins over the claimed one.
func (r *Resolver) ResolveIdentity(ctx context.Context, claimed access.Identity) (access.Identity, error) {
	usr, err := Get(ctx, r.db, claimed.UserID)
	if errors.Is(err, ErrUserNotFound) || (err == nil && !usr.Active) {
		return access.Identity{}, middleware.ErrUnknownUser
	}
	if err != nil {
		return access.Identity{}, err
	}
	return usr.Identity(), nil
}
