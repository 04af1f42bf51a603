package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

type AuthService struct {
	*Env
	Tokens         *utils.TokenIssuer
	RegisterOffice string
}

func NewAuthService(env *Env, tokens *utils.TokenIssuer, office string) *AuthService {
	return &AuthService{Env: env, Tokens: tokens, RegisterOffice: office}
}

// Register creates a reader account together with its reading card.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	cardType, ok := models.ParseCardType(req.ReaderType)
	if !ok {
		return nil, badRequest("Invalid reader type. Must be one of: standard, vip")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Password:  hashed,
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      models.RoleReader,
		CreatedAt: now,
	}
	if req.Phone != "" {
		u.PhoneNumber = &req.Phone
	}
	if req.Address != "" {
		u.Address = &req.Address
	}
	if req.Gender != "" {
		g := models.Gender(req.Gender)
		u.Gender = &g
	}
	if req.DOB != "" {
		dob, err := time.Parse("2006-01-02", req.DOB)
		if err != nil {
			return nil, badRequest("dob must use the format YYYY-MM-DD")
		}
		u.DOB = &dob
	}

	r := &models.Reader{ID: uuid.NewString(), UserID: u.ID}
	card := &models.ReadingCard{
		ID:             uuid.NewString(),
		ReaderID:       r.ID,
		CardType:       cardType,
		Fee:            policy.For(cardType).CardFee,
		RegisterDate:   now,
		RegisterOffice: s.RegisterOffice,
		Status:         models.CardActive,
	}
	if err := s.Store.CreateReader(ctx, u, r, card); err != nil {
		return nil, fromStore(err, "User")
	}

	s.log().Info("reader registered", zap.String("user_id", u.ID), zap.String("card_type", string(cardType)))
	return &models.RegisterResponse{
		UserID:     u.ID,
		ReaderID:   r.ID,
		CardID:     card.ID,
		Username:   u.Username,
		Email:      u.Email,
		ReaderType: strings.ToLower(string(cardType)),
		CardFee:    card.Fee,
	}, nil
}

// Login checks the credentials and that the account has the role of the
// login endpoint used.
func (s *AuthService) Login(ctx context.Context, role models.Role, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	u, err := s.Store.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("Invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(u.Password, req.Password) {
		return nil, unauthorized("Invalid username or password")
	}
	if u.Role != role {
		return nil, forbidden("Account is not authorized as %s", role)
	}

	if err := s.Store.RecordLogin(ctx, u.ID, s.now()); err != nil {
		return nil, err
	}
	token, err := s.Tokens.Generate(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: models.LoginUser{
			UserID:   u.ID,
			Username: u.Username,
			FullName: u.FullName,
			Role:     u.Role,
		},
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return fromStore(s.Store.RecordLogout(ctx, userID, s.now()), "User")
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "User")
	}
	return u, nil
}

func GenderOptions() models.OptionSet {
	opts := make([]string, len(models.Genders))
	for i, g := range models.Genders {
		opts[i] = string(g)
	}
	return models.OptionSet{Options: opts, Description: map[string]string{"gender": "User's gender"}}
}

func ReaderTypeOptions() models.OptionSet {
	std, vip := policy.For(models.CardStandard), policy.For(models.CardVIP)
	return models.OptionSet{
		Options:  []string{"standard", "vip"},
		Required: true,
		Default:  "standard",
		Description: map[string]string{
			"standard": fmt.Sprintf("Standard reader: %d books for %d days, card fee %d", std.MaxBooks, std.LoanDays, std.CardFee),
			"vip":      fmt.Sprintf("VIP reader: %d books for %d days including Rare titles, card fee %d", vip.MaxBooks, vip.LoanDays, vip.CardFee),
		},
	}
}

func RegistrationOptions() models.RegistrationOptions {
	return models.RegistrationOptions{Gender: GenderOptions(), ReaderType: ReaderTypeOptions()}
}
