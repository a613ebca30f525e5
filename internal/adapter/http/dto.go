package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date is a calendar date on the wire, YYYY-MM-DD
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.Validation("invalid date: " + raw)
	}
	return t.UTC(), nil
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// optional records whether a field was present in the body and whether it
// was an explicit null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// contractRequest is the body of create and edit. Absent fields stay nil.
// The nullable columns use optional so that an explicit null clears them.
type contractRequest struct {
	Title      *string          `json:"title"`
	ContractNo *string          `json:"contract_no"`
	PartyA     *string          `json:"party_a"`
	PartyB     *string          `json:"party_b"`
	Amount     *decimal.Decimal `json:"amount"`
	SignDate   optional[Date]   `json:"sign_date"`
	ExpireDate optional[Date]   `json:"expire_date"`
	Note       optional[string] `json:"note"`
	Status     *string          `json:"status"`
}

func (req contractRequest) fields() (domain.ContractFields, error) {
	if req.Amount == nil {
		return domain.ContractFields{}, domain.Validation("amount is required")
	}
	return domain.ContractFields{
		Title:      deref(req.Title),
		ContractNo: deref(req.ContractNo),
		PartyA:     deref(req.PartyA),
		PartyB:     deref(req.PartyB),
		Amount:     *req.Amount,
		SignDate:   req.SignDate.Value.ptr(),
		ExpireDate: req.ExpireDate.Value.ptr(),
		Note:       req.Note.Value,
	}, nil
}

func (req contractRequest) patch() (domain.ContractPatch, error) {
	p := domain.ContractPatch{
		Title:           req.Title,
		ContractNo:      req.ContractNo,
		PartyA:          req.PartyA,
		PartyB:          req.PartyB,
		Amount:          req.Amount,
		SignDate:        req.SignDate.Value.ptr(),
		ExpireDate:      req.ExpireDate.Value.ptr(),
		ClearSignDate:   req.SignDate.Null,
		ClearExpireDate: req.ExpireDate.Null,
	}
	if req.Note.Set {
		note := req.Note.Value
		p.Note = &note
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return p, err
		}
		p.Status = &status
	}
	return p, nil
}

type remarkRequest struct {
	Remark string `json:"remark"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type attachmentResponse struct {
	ID         string    `json:"id"`
	ContractID string    `json:"contract_id"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	CreatedAt  time.Time `json:"created_at"`
}

type contractResponse struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	ContractNo        string                `json:"contract_no"`
	PartyA            string                `json:"party_a"`
	PartyB            string                `json:"party_b"`
	Amount            string                `json:"amount"`
	SignDate          *string               `json:"sign_date"`
	ExpireDate        *string               `json:"expire_date"`
	Status            domain.ContractStatus `json:"status"`
	StatusLabel       string                `json:"status_label"`
	Note              string                `json:"note"`
	CreatedBy         string                `json:"created_by"`
	CreatedByUsername string                `json:"created_by_username"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Attachments       []attachmentResponse  `json:"attachments"`
}

func toAttachmentResponse(a domain.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:         a.ID,
		ContractID: a.ContractID,
		FileName:   a.FileName,
		FileSize:   a.FileSize,
		CreatedAt:  a.CreatedAt,
	}
}

func toContractResponse(c *domain.Contract) contractResponse {
	resp := contractResponse{
		ID:                c.ID,
		Title:             c.Title,
		ContractNo:        c.ContractNo,
		PartyA:            c.PartyA,
		PartyB:            c.PartyB,
		Amount:            c.Amount.StringFixed(2),
		SignDate:          formatDate(c.SignDate),
		ExpireDate:        formatDate(c.ExpireDate),
		Status:            c.Status,
		StatusLabel:       c.Status.Label(),
		Note:              c.Note,
		CreatedBy:         c.CreatedBy,
		CreatedByUsername: c.CreatedByUsername,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Attachments:       make([]attachmentResponse, 0, len(c.Attachments)),
	}
	for _, a := range c.Attachments {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(a))
	}
	return resp
}

type pageResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// decodeJSON reads a JSON body. An empty body is accepted when optional.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.Validation("invalid request body")
}

// queryInt parses an optional integer parameter; def is used when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validation(name + " must be an integer")
	}
	return n, nil
}

// queryPage reads skip and limit. An explicit limit below one is rejected
// here because the filters treat zero as "use the default".
func queryPage(r *http.Request) (skip, limit int, err error) {
	if skip, err = queryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if r.URL.Query().Has("limit") && limit < 1 {
		return 0, 0, domain.Validation("limit must be at least 1")
	}
	return skip, limit, nil
}

func queryString(r *http.Request, name string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := queryString(r, name)
	if raw == nil {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
