// Package service implements the cafe operations shared by the JSON API,
// the HTML pages and the MCP tools.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/cafes/internal/platform/errors"
	platformotel "github.com/louisbranch/cafes/internal/platform/otel"
	"github.com/louisbranch/cafes/internal/services/cafes/filter"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/cafes/internal/services/cafes/service"

// Messages returned to clients. The JSON API keeps them verbatim.
const (
	MsgCreated        = "A new Cafe was Created."
	MsgNoLocation     = "There is no location provided."
	MsgNoMatch        = "No Cafe in That location."
	MsgEmptyStore     = "There are no cafes in the database yet."
	MsgPriceUpdated   = "Successfully updated the price"
	MsgMissingPrice   = "No Price Provided"
	MsgNotFound       = "Sorry a cafe with that id was not found in the database"
	MsgDeleted        = "Successfully Deleted."
	MsgNotAllowed     = "You are not Allowed to use this method"
	MsgNoCafeWithID   = "No Cafe with the id Provided"
	MsgDuplicateName  = "A cafe with that name already exists."
	MsgValidation     = "Some required fields are missing."
	MsgFieldRequired  = "This field is required."
	MsgInvalidFilter  = "The filter expression is not valid."
	MsgStoreFailure   = "The cafe store could not complete the request."
	MsgInvalidCafeID  = "The cafe id must be a positive integer."
	MsgDeleteDisabled = "Deleting cafes is disabled on this server."
)

// OperationRecorder observes store calls, typically for metrics.
type OperationRecorder interface {
	RecordStoreOperation(operation string, err error)
}

// CreateInput carries the fields accepted when adding a cafe.
type CreateInput struct {
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasToilet    bool
	HasWifi      bool
	HasSockets   bool
	CanTakeCalls bool
	CoffeePrice  string
}

// Service runs cafe operations against a store.
type Service struct {
	store    storage.CafeStore
	apiKey   string
	recorder OperationRecorder
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithAPIKey sets the shared credential required to delete cafes. An empty
// key rejects every delete.
func WithAPIKey(key string) Option {
	return func(s *Service) {
		s.apiKey = key
	}
}

// WithRecorder sets the store operation recorder.
func WithRecorder(recorder OperationRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// New builds a Service over store.
func New(store storage.CafeStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: platformotel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns every cafe, narrowed by an optional AIP-160 filter.
func (s *Service) List(ctx context.Context, filterExpr string) (cafes []storage.Cafe, err error) {
	ctx, end := s.start(ctx, "List", attribute.String("cafes.filter", filterExpr))
	defer func() { end(err) }()

	cond, parseErr := filter.Parse(filterExpr)
	if parseErr != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidFilter, MsgInvalidFilter, parseErr)
	}
	cafes, err = s.store.ListCafes(ctx, cond)
	s.record("list", err)
	if err != nil {
		return nil, storeFailure(err)
	}
	return cafes, nil
}

// Get returns one cafe by id.
func (s *Service) Get(ctx context.Context, id int64) (cafe storage.Cafe, err error) {
	ctx, end := s.start(ctx, "Get", attribute.Int64("cafes.id", id))
	defer func() { end(err) }()

	if id <= 0 {
		return storage.Cafe{}, apperrors.New(apperrors.CodeInvalidArgument, MsgInvalidCafeID)
	}
	cafe, err = s.store.GetCafe(ctx, id)
	s.record("get", err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Cafe{}, apperrors.Wrap(apperrors.CodeNotFound, MsgNotFound, err)
		}
		return storage.Cafe{}, storeFailure(err)
	}
	return cafe, nil
}

// Search returns the cafes at location. A blank location and a location with
// no cafes are reported as distinct errors.
func (s *Service) Search(ctx context.Context, location string) (cafes []storage.Cafe, err error) {
	ctx, end := s.start(ctx, "Search", attribute.String("cafes.location", location))
	defer func() { end(err) }()

	location = strings.TrimSpace(location)
	if location == "" {
		return nil, apperrors.New(apperrors.CodeMissingArgument, MsgNoLocation)
	}
	cafes, err = s.store.ListCafesByLocation(ctx, location)
	s.record("search", err)
	if err != nil {
		return nil, storeFailure(err)
	}
	if len(cafes) == 0 {
		return nil, apperrors.New(apperrors.CodeNoMatch, MsgNoMatch)
	}
	return cafes, nil
}

// Random returns one cafe chosen uniformly at random.
func (s *Service) Random(ctx context.Context) (cafe storage.Cafe, err error) {
	ctx, end := s.start(ctx, "Random")
	defer func() { end(err) }()

	cafe, err = s.store.RandomCafe(ctx)
	s.record("random", err)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyStore) {
			return storage.Cafe{}, apperrors.Wrap(apperrors.CodeEmptyStore, MsgEmptyStore, err)
		}
		return storage.Cafe{}, storeFailure(err)
	}
	return cafe, nil
}

// Create validates input and stores a new cafe.
func (s *Service) Create(ctx context.Context, input CreateInput) (cafe storage.Cafe, err error) {
	ctx, end := s.start(ctx, "Create", attribute.String("cafes.name", input.Name))
	defer func() { end(err) }()

	candidate := input.cafe().Normalize()
	if missing := candidate.MissingFields(); len(missing) > 0 {
		metadata := make(map[string]string, len(missing))
		for _, field := range missing {
			metadata[field] = MsgFieldRequired
		}
		return storage.Cafe{}, apperrors.WithMetadata(apperrors.CodeValidationFailed, MsgValidation, metadata)
	}

	cafe, err = s.store.CreateCafe(ctx, candidate)
	s.record("create", err)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return storage.Cafe{}, apperrors.WithMetadata(apperrors.CodeDuplicateName, MsgDuplicateName,
				map[string]string{"name": MsgDuplicateName})
		case errors.Is(err, storage.ErrInvalidCafe):
			return storage.Cafe{}, apperrors.Wrap(apperrors.CodeValidationFailed, MsgValidation, err)
		}
		return storage.Cafe{}, storeFailure(err)
	}
	return cafe, nil
}

// UpdatePrice replaces the coffee price of one cafe. A blank price is
// rejected before the id is looked up.
func (s *Service) UpdatePrice(ctx context.Context, id int64, newPrice string) (cafe storage.Cafe, err error) {
	ctx, end := s.start(ctx, "UpdatePrice", attribute.Int64("cafes.id", id))
	defer func() { end(err) }()

	newPrice = strings.TrimSpace(newPrice)
	if newPrice == "" {
		return storage.Cafe{}, apperrors.New(apperrors.CodeMissingArgument, MsgMissingPrice)
	}
	if id <= 0 {
		return storage.Cafe{}, apperrors.New(apperrors.CodeNotFound, MsgNotFound)
	}
	cafe, err = s.store.UpdateCafePrice(ctx, id, newPrice)
	s.record("update_price", err)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return storage.Cafe{}, apperrors.Wrap(apperrors.CodeNotFound, MsgNotFound, err)
		case errors.Is(err, storage.ErrMissingArgument):
			return storage.Cafe{}, apperrors.Wrap(apperrors.CodeMissingArgument, MsgMissingPrice, err)
		}
		return storage.Cafe{}, storeFailure(err)
	}
	return cafe, nil
}

// Delete removes one cafe when apiKey matches the configured credential. The
// credential is checked before the id so unauthorized callers learn nothing
// about which cafes exist.
func (s *Service) Delete(ctx context.Context, id int64, apiKey string) (err error) {
	ctx, end := s.start(ctx, "Delete", attribute.Int64("cafes.id", id))
	defer func() { end(err) }()

	if s.apiKey == "" {
		return apperrors.New(apperrors.CodeUnauthorized, MsgDeleteDisabled)
	}
	if !s.authorized(apiKey) {
		return apperrors.New(apperrors.CodeUnauthorized, MsgNotAllowed)
	}
	if id <= 0 {
		return apperrors.New(apperrors.CodeNotFound, MsgNoCafeWithID)
	}
	err = s.store.DeleteCafe(ctx, id)
	s.record("delete", err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeNotFound, MsgNoCafeWithID, err)
		}
		return storeFailure(err)
	}
	return nil
}

// DeleteEnabled reports whether a delete credential is configured.
func (s *Service) DeleteEnabled() bool {
	return s.apiKey != ""
}

// APIKey returns the configured delete credential for trusted in-process
// callers such as the HTML pages.
func (s *Service) APIKey() string {
	return s.apiKey
}

func (s *Service) authorized(apiKey string) bool {
	if s.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.apiKey)) == 1
}

func (s *Service) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, "cafes."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			code := apperrors.GetCode(err)
			span.SetAttributes(attribute.String("cafes.error_code", string(code)))
			if code == apperrors.CodeUnknown {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
	}
}

func (s *Service) record(operation string, err error) {
	if s.recorder != nil {
		s.recorder.RecordStoreOperation(operation, err)
	}
}

func (in CreateInput) cafe() storage.Cafe {
	c := storage.Cafe{
		Name:         in.Name,
		MapURL:       in.MapURL,
		ImgURL:       in.ImgURL,
		Location:     in.Location,
		Seats:        in.Seats,
		HasToilet:    in.HasToilet,
		HasWifi:      in.HasWifi,
		HasSockets:   in.HasSockets,
		CanTakeCalls: in.CanTakeCalls,
	}
	if in.CoffeePrice != "" {
		price := in.CoffeePrice
		c.CoffeePrice = &price
	}
	return c
}

func storeFailure(err error) error {
	return apperrors.Wrap(apperrors.CodeUnknown, MsgStoreFailure, err)
}
