package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/auth"
	"github.com/redirex/shipglobal-backend/internal/models"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
)

type AccountService struct {
	users     repo.Users
	companies repo.Companies
	tm        *auth.TokenManager
}

func NewAccountService(u repo.Users, c repo.Companies, tm *auth.TokenManager) *AccountService {
	return &AccountService{users: u, companies: c, tm: tm}
}

func (s *AccountService) RegisterUser(ctx context.Context, username, email, password string, companyID *string) (models.User, error) {
	u := models.User{
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		Role:      "user",
		CompanyID: companyID,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, apperr.Wrap(apperr.KindValidation, "validation_error", err.Error(), err)
	}
	if len(password) < 8 {
		return models.User{}, apperr.Validationf("password must be at least 8 characters")
	}
	if companyID != nil {
		if _, err := s.companies.GetByID(ctx, *companyID); err != nil {
			return models.User{}, apperr.Validationf("unknown company")
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash
	return s.users.Create(ctx, u)
}

func (s *AccountService) RegisterCompany(ctx context.Context, name, taxID, country string) (models.Company, error) {
	c := models.Company{Name: strings.TrimSpace(name), TaxID: strings.TrimSpace(taxID), Country: country}
	if err := c.Validate(); err != nil {
		return models.Company{}, apperr.Wrap(apperr.KindValidation, "validation_error", err.Error(), err)
	}
	return s.companies.Create(ctx, c)
}

type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

func (s *AccountService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// uniform failure whether the email or the password is wrong
		return TokenPair{}, apperr.ErrUnauthorized
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, apperr.ErrUnauthorized
	}

	accountType := string(models.AccountUser)
	companyID := ""
	if u.CompanyID != nil {
		companyID = *u.CompanyID
	}
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, accountType, companyID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: time.Until(exp).Truncate(time.Second)}, nil
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, apperr.ErrUnauthorized
	}
	// the account may have been deleted since the token was issued
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return TokenPair{}, apperr.ErrUnauthorized
		}
		return TokenPair{}, err
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.AccountType, claims.CompanyID, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: time.Until(exp).Truncate(time.Second)}, nil
}
