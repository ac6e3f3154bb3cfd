package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RunAgent answers a back-office question using Gemini with tool access
// to live portal data. Read-only: the assistant can look things up but
// never mutates packages or invoices.
func RunAgent(userMessage string, apiKey string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are an operations assistant for a cargo portal.

RULES:
1. TRACKING: If a user asks about a specific package, call 'get_package_status' with the tracking number and read the JSON to answer. Do NOT say you cannot look up packages.
2. REVENUE: If the user asks for collected payments or revenue, use 'get_revenue_report' with a date range.
3. WORKLOAD: If the user asks how many packages are in each stage, use 'count_packages_by_status'.

USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "get_package_status",
					Description: "Look up a single package by tracking number. Returns status, weight, route, and latest history entry.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"tracking_number": {Type: genai.TypeString, Description: "Tracking number of the package"},
						},
						Required: []string{"tracking_number"},
					},
				},
				{
					Name:        "get_revenue_report",
					Description: "Get total captured payment revenue for a date range.",
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
					Name:        "count_packages_by_status",
					Description: "Get a breakdown of package counts grouped by lifecycle status.",
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "get_package_status":
				return executePackageLookup(ctx, session, funcCall), nil
			case "get_revenue_report":
				return executeRevenueReport(ctx, session, funcCall), nil
			case "count_packages_by_status":
				return executeStatusBreakdown(ctx, session), nil
			}
		}
	}

	return printResponse(resp), nil
}

func executePackageLookup(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	tn, _ := funcCall.Args["tracking_number"].(string)

	var pkg models.Package
	err := database.DB.Preload("History").Where("tracking_number = ?", tn).First(&pkg).Error
	if err != nil {
		finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
			Name:     "get_package_status",
			Response: map[string]interface{}{"error": "package not found"},
		})
		return printResponse(finalResp)
	}

	type summary struct {
		TrackingNumber string  `json:"tracking_number"`
		Status         string  `json:"status"`
		WeightKg       float64 `json:"weight_kg"`
		Origin         string  `json:"origin"`
		Destination    string  `json:"destination"`
		LastEvent      string  `json:"last_event"`
	}
	s := summary{
		TrackingNumber: pkg.TrackingNumber,
		Status:         pkg.Status,
		WeightKg:       pkg.WeightKg,
		Origin:         pkg.OriginCountry,
		Destination:    pkg.DestCountry,
	}
	if n := len(pkg.History); n > 0 {
		s.LastEvent = pkg.History[n-1].Note
	}
	jsonBytes, _ := json.Marshal(s)

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "get_package_status",
		Response: map[string]interface{}{"package": string(jsonBytes)},
	})
	return printResponse(finalResp)
}

func executeRevenueReport(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	startStr, _ := args["start_date"].(string)
	endStr, _ := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)
	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format."
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	report, err := database.GetRevenueReport(start, end)
	if err != nil {
		return "Error calculating revenue."
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_revenue_report",
		Response: map[string]interface{}{
			"total_collected": report.TotalCollected,
			"payment_count":   report.PaymentCount,
		},
	})
	return printResponse(finalResp)
}

func executeStatusBreakdown(ctx context.Context, session *genai.ChatSession) string {
	counts, err := database.CountPackagesByStatus()
	if err != nil {
		return "Error reading package counts."
	}
	jsonBytes, _ := json.Marshal(counts)

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "count_packages_by_status",
		Response: map[string]interface{}{"breakdown": string(jsonBytes)},
	})
	return printResponse(finalResp)
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the lookup."
}
