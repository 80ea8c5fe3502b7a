/*
dto.go - Data Transfer Objects for API requests/responses

PURPOSE:
  Defines JSON structures for HTTP API communication. Records and catalog
  items already carry the portal's JSON shape and are sent as-is; the DTOs
  here wrap them with the extra fields a response needs.

NAMING CONVENTION:
  - *Request:  Incoming request body
  - *DTO:      Outgoing response body

SEE ALSO:
  - handlers.go: Uses these DTOs
  - checkout/types.go: IssueRecord JSON shape
*/
package api

import (
	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/equipment"
	"github.com/warp/sports-checkout/session"
)

// =============================================================================
// SESSION DTOs
// =============================================================================

// UserDTO is a user without the password.
type UserDTO struct {
	Name             string `json:"name"`
	EnrollmentNumber string `json:"enrollmentNumber"`
	Department       string `json:"department"`
	Semester         string `json:"semester"`
	Section          string `json:"section"`
	IDCard           string `json:"idCard,omitempty"`
}

func toUserDTO(u session.User) UserDTO {
	return UserDTO{
		Name:             u.Name,
		EnrollmentNumber: u.EnrollmentNumber,
		Department:       u.Department,
		Semester:         u.Semester,
		Section:          u.Section,
		IDCard:           u.IDCard,
	}
}

type LoginRequest struct {
	EnrollmentNumber string `json:"enrollmentNumber"`
	Password         string `json:"password"`
}

// SessionDTO answers GET /api/session. User is nil when nobody is logged in.
type SessionDTO struct {
	LoggedIn bool     `json:"loggedIn"`
	User     *UserDTO `json:"user,omitempty"`
}

// =============================================================================
// EQUIPMENT DTOs
// =============================================================================

type CatalogDTO struct {
	Items []equipment.Item `json:"items"`
}

type SummaryDTO struct {
	Categories []equipment.CategorySummary `json:"categories"`
}

// =============================================================================
// ISSUE DTOs
// =============================================================================

type IssueResponseDTO struct {
	Record   checkout.IssueRecord `json:"record"`
	Advisory string               `json:"advisory,omitempty"`
	Message  string               `json:"message"`
}

type ReturnResponseDTO struct {
	Record  checkout.IssueRecord `json:"record"`
	FeeDue  int64                `json:"feeDue"`
	Message string               `json:"message"`
}

// OutstandingIssueDTO is a stored record plus its countdown at response time.
type OutstandingIssueDTO struct {
	checkout.IssueRecord
	Countdown checkout.Countdown `json:"countdown"`
}

type RefreshResponseDTO struct {
	Updated int `json:"updated"`
}

// CountdownMessageDTO is one websocket frame of the countdown feed.
type CountdownMessageDTO struct {
	At     checkout.Timestamp        `json:"at"`
	Issues []checkout.IssueCountdown `json:"issues"`
}

// =============================================================================
// SCENARIO DTOs
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERROR DTOs
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// LimitDetailsDTO explains a cap rejection.
type LimitDetailsDTO struct {
	Sport   string `json:"sport"`
	SubKind string `json:"subKind,omitempty"`
	Held    int    `json:"held"`
	Cap     int    `json:"cap"`
}
