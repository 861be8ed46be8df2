package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/inventory"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RunAgent answers an admin's free-text question about the store by letting
// Gemini call catalog/inventory/sales tools.
func RunAgent(userMessage string, apiKey string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are the store's admin assistant.

	RULES:
	1. READ: If the admin asks for PRICE, STOCK, or DETAILS of a product:
	   - You MUST call 'check_catalog' to get the full list.
	   - Then read the JSON to find the specific item and answer.
	2. UPDATE: If the admin asks to reprice a product by NAME:
	   - Call 'check_catalog' to find its ID first.
	   - Then call 'update_product_price' with that ID.
	3. SALES: For revenue/order questions use 'get_sales_report'.
	4. RESTOCK: For "what is running out" questions use 'check_low_stock'.

	USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_catalog",
					Description: "Get the full product catalog. Use this to find ANY product details like ID, Name, Price or total stock.",
				},
				{
					Name:        "update_product_price",
					Description: "Update the price of a specific product using its ID",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
							"new_price":  {Type: genai.TypeNumber, Description: "New price"},
						},
						Required: []string{"product_id", "new_price"},
					},
				},
				{
					Name:        "get_sales_report",
					Description: "Get total order revenue and order count for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
				{
					Name:        "check_low_stock",
					Description: "List every SKU at or below its restock threshold.",
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	// --- HANDLE TOOL CALLS ---
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {

			if funcCall.Name == "check_catalog" {
				var products []models.Product
				database.DB.Find(&products)

				type SimpleProduct struct {
					ID         uint    `json:"id"`
					Name       string  `json:"name"`
					Stock      int     `json:"stock"`
					Price      float64 `json:"price"`
					SalesCount int     `json:"sales_count"`
				}
				var simpleList []SimpleProduct
				for _, p := range products {
					simpleList = append(simpleList, SimpleProduct{
						ID:         p.ID,
						Name:       p.Name,
						Stock:      p.TotalQuantity,
						Price:      p.Price,
						SalesCount: p.SalesCount,
					})
				}

				jsonBytes, _ := json.Marshal(simpleList)

				toolResp := genai.FunctionResponse{
					Name:     "check_catalog",
					Response: map[string]interface{}{"catalog": string(jsonBytes)},
				}

				finalResp, err := session.SendMessage(ctx, toolResp)
				if err != nil {
					return "", err
				}

				return handleRecursiveToolCalls(ctx, session, finalResp), nil
			}

			if funcCall.Name == "update_product_price" {
				return executeUpdatePrice(ctx, session, funcCall), nil
			}

			if funcCall.Name == "get_sales_report" {
				return executeSalesReport(ctx, session, funcCall), nil
			}

			if funcCall.Name == "check_low_stock" {
				return executeLowStock(ctx, session), nil
			}
		}
	}

	return printResponse(resp), nil
}

// --- HELPER FUNCTIONS ---

func handleRecursiveToolCalls(ctx context.Context, session *genai.ChatSession, resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			if funcCall.Name == "update_product_price" {
				return executeUpdatePrice(ctx, session, funcCall)
			}
		}
	}
	return printResponse(resp)
}

func executeUpdatePrice(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	productID := int(args["product_id"].(float64))
	newPrice := args["new_price"].(float64)

	result := database.DB.Model(&models.Product{}).Where("id = ?", productID).Update("price", newPrice)

	msg := "Success"
	if result.RowsAffected == 0 {
		msg = "Product ID not found"
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "update_product_price",
		Response: map[string]interface{}{"status": msg, "new_price": newPrice},
	})
	return printResponse(finalResp)
}

func executeSalesReport(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	startStr := args["start_date"].(string)
	endStr := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)

	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format."
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	report, err := database.GetSalesReport(start, end)
	if err != nil {
		return "Error calculating sales."
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_sales_report",
		Response: map[string]interface{}{
			"revenue":     report.TotalRevenue,
			"order_count": report.TotalOrders,
		},
	})
	return printResponse(finalResp)
}

func executeLowStock(ctx context.Context, session *genai.ChatSession) string {
	records, err := inventory.LowStock(database.DB)
	if err != nil {
		return "Error reading inventory."
	}

	type LowItem struct {
		SKU       string `json:"sku"`
		Quantity  int    `json:"quantity"`
		Threshold int    `json:"threshold"`
	}
	var items []LowItem
	for _, r := range records {
		items = append(items, LowItem{SKU: r.SKU, Quantity: r.Quantity, Threshold: r.LowStockThreshold})
	}
	jsonBytes, _ := json.Marshal(items)

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "check_low_stock",
		Response: map[string]interface{}{"low_stock": string(jsonBytes)},
	})
	return printResponse(finalResp)
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
