package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/domain"
)

// Action response contents for a signature request.
const (
	SignedContent   = "Signed by employee"
	DeclinedContent = "Employee declined to sign"
)

// ErrInvalidSignature is returned when a signature blob is missing or not valid base64.
var ErrInvalidSignature = errors.New("chat: invalid signature") //nolint:gochecknoglobals // sentinel error

const signatureContentType = "image/png"

type SignRequest struct {
	ConversationID string
	EmployeeID     string
	ToolID         string
	DocumentID     string
	Confirmed      bool
	// SignatureBlob is a base64 PNG, optionally as a data URL.
	SignatureBlob string
}

type SignResult struct {
	// ID of the signed document record. Empty when the employee declined.
	ID string `json:"id"`
}

// Signer records confirmed signatures against the employee.
type Signer struct {
	employees domain.EmployeeRepository
	documents domain.SignatureDocumentRepository
	now       func() time.Time
	newID     func() string
}

type SignerOption func(*Signer)

func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

func WithSignerIDGenerator(newID func() string) SignerOption {
	return func(s *Signer) { s.newID = newID }
}

func NewSigner(employees domain.EmployeeRepository, documents domain.SignatureDocumentRepository, opts ...SignerOption) *Signer {
	s := &Signer{
		employees: employees,
		documents: documents,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign stores the signature image and appends a signed document record.
// A declined request changes nothing.
func (s *Signer) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	if !req.Confirmed {
		log.Info().
			Str("conversation_id", req.ConversationID).
			Str("tool_id", req.ToolID).
			Msg("signature declined")
		return &SignResult{}, nil
	}

	if req.EmployeeID == "" || req.DocumentID == "" {
		return nil, fmt.Errorf("chat.Signer.Sign: employee and document required: %w", domain.ErrInvalidInput)
	}

	image, err := DecodeDataURL(req.SignatureBlob)
	if err != nil {
		return nil, fmt.Errorf("chat.Signer.Sign: %w", err)
	}

	employee, err := s.employees.GetByID(ctx, domain.EmployeeID(req.EmployeeID))
	if err != nil {
		return nil, fmt.Errorf("chat.Signer.Sign: employee: %w", err)
	}
	doc, err := s.documents.GetByID(ctx, domain.QualifiedID(domain.CollectionSignatureDocuments, req.DocumentID))
	if err != nil {
		return nil, fmt.Errorf("chat.Signer.Sign: document: %w", err)
	}

	now := s.now()
	attachmentName := req.DocumentID + "-signature.png"
	signed := &domain.SignedDocument{
		ID:                      s.newID(),
		DocumentID:              doc.ID,
		DocumentTitle:           doc.Title,
		DocumentVersion:         doc.Version,
		SignedDate:              now,
		SignatureAttachmentName: attachmentName,
		SignedBy:                employee.Name,
		SignatureMethod:         domain.SignatureMethodDigital,
		ExpirationDate:          doc.ExpirationFrom(now),
	}
	attachment := &domain.Attachment{
		EmployeeID:  employee.ID,
		Name:        attachmentName,
		ContentType: signatureContentType,
		Data:        image,
		CreatedAt:   now,
	}

	if err := s.employees.AddSignedDocument(ctx, employee.ID, signed, attachment); err != nil {
		return nil, fmt.Errorf("chat.Signer.Sign: %w", err)
	}

	log.Info().
		Str("employee_id", employee.ID).
		Str("document_id", doc.ID).
		Str("signed_document_id", signed.ID).
		Msg("document signed")

	return &SignResult{ID: signed.ID}, nil
}

// DecodeDataURL decodes a base64 payload, stripping a "data:...;base64," prefix.
func DecodeDataURL(blob string) ([]byte, error) {
	data := strings.TrimSpace(blob)
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return nil, fmt.Errorf("data url without payload: %w", ErrInvalidSignature)
		}
		data = data[comma+1:]
	}
	if data == "" {
		return nil, fmt.Errorf("empty signature: %w", ErrInvalidSignature)
	}

	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return b, nil
}
