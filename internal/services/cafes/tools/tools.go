// Package tools exposes the cafe operations as Model Context Protocol tools.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "cafes-mcp"
	serverVersion = "0.1.0"
)

// Service is the set of cafe operations exposed as tools.
type Service interface {
	List(ctx context.Context, filterExpr string) ([]storage.Cafe, error)
	Get(ctx context.Context, id int64) (storage.Cafe, error)
	Search(ctx context.Context, location string) ([]storage.Cafe, error)
	Random(ctx context.Context) (storage.Cafe, error)
	Create(ctx context.Context, input service.CreateInput) (storage.Cafe, error)
	UpdatePrice(ctx context.Context, id int64, newPrice string) (storage.Cafe, error)
	Delete(ctx context.Context, id int64, apiKey string) error
}

// Cafe is the tool representation of a cafe.
type Cafe struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	MapURL       string  `json:"map_url"`
	ImgURL       string  `json:"img_url"`
	Location     string  `json:"location"`
	Seats        string  `json:"seats"`
	HasToilet    bool    `json:"has_toilet"`
	HasWifi      bool    `json:"has_wifi"`
	HasSockets   bool    `json:"has_sockets"`
	CanTakeCalls bool    `json:"can_take_calls"`
	CoffeePrice  *string `json:"coffee_price"`
}

// CafeListInput represents the cafe_list tool input.
type CafeListInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter over name, location, seats, coffee_price and the amenity flags"`
}

// CafeIDInput represents tool input addressing one cafe.
type CafeIDInput struct {
	ID int64 `json:"id" jsonschema:"cafe identifier"`
}

// CafeSearchInput represents the cafe_search tool input.
type CafeSearchInput struct {
	Location string `json:"location" jsonschema:"exact location to match"`
}

// CafeRandomInput represents the cafe_random tool input.
type CafeRandomInput struct{}

// CafeCreateInput represents the cafe_create tool input.
type CafeCreateInput struct {
	Name         string `json:"name" jsonschema:"unique cafe name"`
	MapURL       string `json:"map_url" jsonschema:"map link"`
	ImgURL       string `json:"img_url" jsonschema:"image link"`
	Location     string `json:"location" jsonschema:"location name"`
	Seats        string `json:"seats" jsonschema:"seat count, free-form (e.g. 20-30)"`
	HasToilet    bool   `json:"has_toilet,omitempty" jsonschema:"whether the cafe has a toilet"`
	HasWifi      bool   `json:"has_wifi,omitempty" jsonschema:"whether the cafe has wifi"`
	HasSockets   bool   `json:"has_sockets,omitempty" jsonschema:"whether the cafe has sockets"`
	CanTakeCalls bool   `json:"can_take_calls,omitempty" jsonschema:"whether calls are allowed"`
	CoffeePrice  string `json:"coffee_price,omitempty" jsonschema:"optional coffee price, free-form (e.g. £2.50)"`
}

// CafeUpdatePriceInput represents the cafe_update_price tool input.
type CafeUpdatePriceInput struct {
	ID       int64  `json:"id" jsonschema:"cafe identifier"`
	NewPrice string `json:"new_price" jsonschema:"new coffee price"`
}

// CafeReportClosedInput represents the cafe_report_closed tool input.
type CafeReportClosedInput struct {
	ID     int64  `json:"id" jsonschema:"cafe identifier"`
	APIKey string `json:"api_key" jsonschema:"shared credential authorizing deletion"`
}

// CafeResult wraps one cafe.
type CafeResult struct {
	Cafe Cafe `json:"cafe"`
}

// CafeListResult wraps a list of cafes.
type CafeListResult struct {
	Cafes []Cafe `json:"cafes"`
}

// CafeDeleteResult reports a deletion.
type CafeDeleteResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// CafeListTool defines the MCP tool schema for listing cafes.
func CafeListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_list",
		Description: "Lists every cafe, optionally narrowed by an AIP-160 filter",
	}
}

// CafeGetTool defines the MCP tool schema for fetching one cafe.
func CafeGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_get",
		Description: "Returns one cafe by id",
	}
}

// CafeSearchTool defines the MCP tool schema for location search.
func CafeSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_search",
		Description: "Lists the cafes at an exact location",
	}
}

// CafeRandomTool defines the MCP tool schema for picking a random cafe.
func CafeRandomTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_random",
		Description: "Returns a random cafe",
	}
}

// CafeCreateTool defines the MCP tool schema for adding a cafe.
func CafeCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_create",
		Description: "Adds a cafe",
	}
}

// CafeUpdatePriceTool defines the MCP tool schema for price updates.
func CafeUpdatePriceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_update_price",
		Description: "Updates the coffee price of a cafe",
	}
}

// CafeReportClosedTool defines the MCP tool schema for deleting a closed cafe.
func CafeReportClosedTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cafe_report_closed",
		Description: "Deletes a cafe that has closed; requires the shared api_key",
	}
}

// CafeListHandler lists cafes through the service.
func CafeListHandler(svc Service) mcp.ToolHandlerFor[CafeListInput, CafeListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeListInput) (*mcp.CallToolResult, CafeListResult, error) {
		cafes, err := svc.List(ctx, input.Filter)
		if err != nil {
			return nil, CafeListResult{}, toolError("cafe list", err)
		}
		return nil, CafeListResult{Cafes: cafesFromStorage(cafes)}, nil
	}
}

// CafeGetHandler fetches one cafe by id.
func CafeGetHandler(svc Service) mcp.ToolHandlerFor[CafeIDInput, CafeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeIDInput) (*mcp.CallToolResult, CafeResult, error) {
		cafe, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, CafeResult{}, toolError("cafe get", err)
		}
		return nil, CafeResult{Cafe: cafeFromStorage(cafe)}, nil
	}
}

// CafeSearchHandler lists the cafes at a location.
func CafeSearchHandler(svc Service) mcp.ToolHandlerFor[CafeSearchInput, CafeListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeSearchInput) (*mcp.CallToolResult, CafeListResult, error) {
		cafes, err := svc.Search(ctx, input.Location)
		if err != nil {
			return nil, CafeListResult{}, toolError("cafe search", err)
		}
		return nil, CafeListResult{Cafes: cafesFromStorage(cafes)}, nil
	}
}

// CafeRandomHandler picks a random cafe.
func CafeRandomHandler(svc Service) mcp.ToolHandlerFor[CafeRandomInput, CafeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ CafeRandomInput) (*mcp.CallToolResult, CafeResult, error) {
		cafe, err := svc.Random(ctx)
		if err != nil {
			return nil, CafeResult{}, toolError("cafe random", err)
		}
		return nil, CafeResult{Cafe: cafeFromStorage(cafe)}, nil
	}
}

// CafeCreateHandler adds a cafe from the tool input.
func CafeCreateHandler(svc Service) mcp.ToolHandlerFor[CafeCreateInput, CafeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeCreateInput) (*mcp.CallToolResult, CafeResult, error) {
		cafe, err := svc.Create(ctx, service.CreateInput{
			Name:         input.Name,
			MapURL:       input.MapURL,
			ImgURL:       input.ImgURL,
			Location:     input.Location,
			Seats:        input.Seats,
			HasToilet:    input.HasToilet,
			HasWifi:      input.HasWifi,
			HasSockets:   input.HasSockets,
			CanTakeCalls: input.CanTakeCalls,
			CoffeePrice:  input.CoffeePrice,
		})
		if err != nil {
			return nil, CafeResult{}, toolError("cafe create", err)
		}
		return nil, CafeResult{Cafe: cafeFromStorage(cafe)}, nil
	}
}

// CafeUpdatePriceHandler sets a new coffee price.
func CafeUpdatePriceHandler(svc Service) mcp.ToolHandlerFor[CafeUpdatePriceInput, CafeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeUpdatePriceInput) (*mcp.CallToolResult, CafeResult, error) {
		cafe, err := svc.UpdatePrice(ctx, input.ID, input.NewPrice)
		if err != nil {
			return nil, CafeResult{}, toolError("cafe update price", err)
		}
		return nil, CafeResult{Cafe: cafeFromStorage(cafe)}, nil
	}
}

// CafeReportClosedHandler deletes a cafe when the api_key matches.
func CafeReportClosedHandler(svc Service) mcp.ToolHandlerFor[CafeReportClosedInput, CafeDeleteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CafeReportClosedInput) (*mcp.CallToolResult, CafeDeleteResult, error) {
		if err := svc.Delete(ctx, input.ID, input.APIKey); err != nil {
			return nil, CafeDeleteResult{}, toolError("cafe report closed", err)
		}
		return nil, CafeDeleteResult{ID: input.ID, Message: service.MsgDeleted}, nil
	}
}

// NewServer builds an MCP server with every cafe tool registered.
func NewServer(svc Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(server, CafeListTool(), CafeListHandler(svc))
	mcp.AddTool(server, CafeGetTool(), CafeGetHandler(svc))
	mcp.AddTool(server, CafeSearchTool(), CafeSearchHandler(svc))
	mcp.AddTool(server, CafeRandomTool(), CafeRandomHandler(svc))
	mcp.AddTool(server, CafeCreateTool(), CafeCreateHandler(svc))
	mcp.AddTool(server, CafeUpdatePriceTool(), CafeUpdatePriceHandler(svc))
	mcp.AddTool(server, CafeReportClosedTool(), CafeReportClosedHandler(svc))
	return server
}

// Serve runs server over transport until the client disconnects or ctx ends.
func Serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if server == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := server.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// toolError keeps the service message so clients see the same text as the
// JSON API.
func toolError(operation string, err error) error {
	return fmt.Errorf("%s failed: %w", operation, err)
}

func cafeFromStorage(c storage.Cafe) Cafe {
	return Cafe{
		ID:           c.ID,
		Name:         c.Name,
		MapURL:       c.MapURL,
		ImgURL:       c.ImgURL,
		Location:     c.Location,
		Seats:        c.Seats,
		HasToilet:    c.HasToilet,
		HasWifi:      c.HasWifi,
		HasSockets:   c.HasSockets,
		CanTakeCalls: c.CanTakeCalls,
		CoffeePrice:  c.CoffeePrice,
	}
}

func cafesFromStorage(cafes []storage.Cafe) []Cafe {
	out := make([]Cafe, 0, len(cafes))
	for _, c := range cafes {
		out = append(out, cafeFromStorage(c))
	}
	return out
}
