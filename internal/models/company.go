package models

import (
	"errors"
	"strings"
	"time"
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Company) Validate() error {
	if len(strings.TrimSpace(c.Name)) < 2 {
		return errors.New("company name too short")
	}
	if strings.TrimSpace(c.TaxID) == "" {
		return errors.New("tax id required")
	}
	return nil
}
