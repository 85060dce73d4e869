// Package ai runs the inventory assistant: a Gemini chat with tools bound
// to the caller's branch.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bakaaro-pos/internal/apperr"
	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/models"
	"bakaaro-pos/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const fallbackReply = "I completed the action."

type Assistant struct {
	apiKey    string
	model     string
	maxRounds int
	products  *services.ProductService
	reports   *services.ReportService
	logger    *slog.Logger
	now       func() time.Time
}

func NewAssistant(cfg *config.Config, products *services.ProductService, reports *services.ReportService, logger *slog.Logger) *Assistant {
	rounds := cfg.AI.MaxRounds
	if rounds < 1 {
		rounds = 4
	}
	return &Assistant{
		apiKey:    cfg.AI.APIKey,
		model:     cfg.AI.Model,
		maxRounds: rounds,
		products:  products,
		reports:   reports,
		logger:    logger,
		now:       time.Now,
	}
}

// Enabled reports whether an API key is configured.
func (a *Assistant) Enabled() bool {
	return a.apiKey != ""
}

// Ask sends message to the model and runs the tool calls it asks for until
// it answers in text or the round limit is reached.
func (a *Assistant) Ask(ctx context.Context, caller *models.User, message string) (string, error) {
	if !a.Enabled() {
		return "", apperr.Internal(errors.New("ai.apiKey is empty"), "assistant is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", apperr.Internal(err, "assistant is unavailable")
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = tools()
	model.SystemInstruction = genai.NewUserContent(genai.Text(a.systemPrompt(caller)))

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", apperr.Internal(err, "assistant request failed")
	}

	for round := 0; round < a.maxRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			a.logger.InfoContext(ctx, "assistant tool call",
				slog.String("tool", call.Name),
				slog.String("userId", caller.ID),
			)
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.runTool(ctx, caller, call),
			})
		}

		resp, err = session.SendMessage(ctx, parts...)
		if err != nil {
			return "", apperr.Internal(err, "assistant request failed")
		}
	}

	return responseText(resp), nil
}

func (a *Assistant) systemPrompt(caller *models.User) string {
	return fmt.Sprintf(`Today is %s. You are the POS assistant of the branch %q.

RULES:
1. UPDATE: If the user asks to update a product by NAME, do NOT ask for the ID.
   Call 'check_inventory' to find the ID, then call 'update_product_price'.
2. READ: For the PRICE, STOCK or DETAILS of a product call 'check_inventory'
   and answer from its result.
3. SALES: For sales or revenue questions call 'get_sales_report'.
4. CREATE: To add a product call 'create_product'; every field is required.
Only this branch's data is available to you.`, a.now().Format("2006-01-02"), caller.Branch)
}

func tools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "Get the branch inventory. Use this to find ANY product detail like ID, name, brand, price, stock or barcode.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {Type: genai.TypeString, Description: "Optional text to filter product names"},
					},
				},
			},
			{
				Name:        "update_product_price",
				Description: "Update the price of a specific product using its ID",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {Type: genai.TypeString, Description: "ID of the product"},
						"new_price":  {Type: genai.TypeNumber, Description: "New price"},
					},
					Required: []string{"product_id", "new_price"},
				},
			},
			{
				Name:        "create_product",
				Description: "Add a new product to the branch inventory",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":     {Type: genai.TypeString, Description: "Name of the product"},
						"brand":    {Type: genai.TypeString, Description: "Brand"},
						"category": {Type: genai.TypeString, Description: "Category (Smartphones, Laptops, ...)"},
						"price":    {Type: genai.TypeNumber, Description: "Unit price"},
						"quantity": {Type: genai.TypeInteger, Description: "Initial stock count"},
						"barcode":  {Type: genai.TypeString, Description: "Barcode, unique in the whole system"},
					},
					Required: []string{"name", "brand", "category", "price", "quantity", "barcode"},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Get sales revenue, count and best sellers, optionally for a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
					},
				},
			},
		},
	}}
}

// runTool executes one function call. Failures are reported to the model
// in the response instead of aborting the conversation. Responses hold only
// []any and map[string]any containers so they convert to protobuf structs.
func (a *Assistant) runTool(ctx context.Context, caller *models.User, call genai.FunctionCall) map[string]any {
	switch call.Name {
	case "check_inventory":
		products, err := a.products.List(ctx, caller)
		if err != nil {
			return toolError(err)
		}
		query := strings.ToLower(argString(call.Args, "query"))
		inventory := make([]any, 0, len(products))
		for _, p := range products {
			if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
				continue
			}
			inventory = append(inventory, map[string]any{
				"id":       p.ID,
				"name":     p.Name,
				"brand":    p.Brand,
				"category": p.Category,
				"price":    p.Price,
				"stock":    p.Quantity,
				"barcode":  p.Barcode,
			})
		}
		return map[string]any{"inventory": inventory}

	case "update_product_price":
		price, ok := argNumber(call.Args, "new_price")
		if !ok {
			return map[string]any{"status": "error", "error": "new_price must be a number"}
		}
		product, err := a.products.SetPrice(ctx, caller, argString(call.Args, "product_id"), price)
		if err != nil {
			return toolError(err)
		}
		return map[string]any{"status": "Success", "product_id": product.ID, "new_price": product.Price}

	case "create_product":
		price, okPrice := argNumber(call.Args, "price")
		qty, okQty := argNumber(call.Args, "quantity")
		if !okPrice || !okQty {
			return map[string]any{"status": "error", "error": "price and quantity must be numbers"}
		}
		quantity := int(qty)
		product, err := a.products.Create(ctx, caller, services.ProductInput{
			Name:     argString(call.Args, "name"),
			Brand:    argString(call.Args, "brand"),
			Category: argString(call.Args, "category"),
			Price:    &price,
			Quantity: &quantity,
			Barcode:  argString(call.Args, "barcode"),
		})
		if err != nil {
			return toolError(err)
		}
		return map[string]any{"status": "created", "id": product.ID}

	case "get_sales_report":
		summary, err := a.reports.SalesSummary(ctx, caller, argString(call.Args, "start_date"), argString(call.Args, "end_date"))
		if err != nil {
			return toolError(err)
		}
		top := make([]any, 0, len(summary.TopSelling))
		for _, row := range summary.TopSelling {
			top = append(top, map[string]any{"name": row.ProductName, "sold": row.Sold, "revenue": row.Revenue})
		}
		return map[string]any{
			"revenue":     summary.TotalRevenue,
			"sales_count": summary.TotalSales,
			"units_sold":  summary.UnitsSold,
			"top_selling": top,
		}

	default:
		return map[string]any{"status": "error", "error": "unknown tool " + call.Name}
	}
}

func toolError(err error) map[string]any {
	return map[string]any{"status": "error", "error": apperr.Message(err)}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argNumber(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, part := range firstParts(resp) {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, part := range firstParts(resp) {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return fallbackReply
	}
	return b.String()
}

func firstParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
