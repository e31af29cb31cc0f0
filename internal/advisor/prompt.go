package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/krishak/internal/mandi"
	"github.com/example/krishak/internal/weather"
)

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func marketBlock(rec *mandi.Record) string {
	if rec == nil {
		rec = &mandi.Record{}
	}
	var b strings.Builder
	b.WriteString("REAL-TIME MARKET DATA (Sourced from Agmarknet API):\n")
	fmt.Fprintf(&b, "- Commodity: %s\n", orDefault(rec.Commodity, "N/A"))
	fmt.Fprintf(&b, "- Variety: %s\n", orDefault(rec.Variety, "N/A"))
	fmt.Fprintf(&b, "- Modal Price: ₹%s/quintal\n", orDefault(rec.ModalPrice, "No data"))
	fmt.Fprintf(&b, "- Arrival Date: %s\n", orDefault(rec.ArrivalDate, "N/A"))
	return b.String()
}

func weatherJSON(s *weather.Summary) string {
	if s == nil {
		return "null"
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "null"
	}
	return string(data)
}

func chatPrompt(question, weatherCtx string) string {
	return fmt.Sprintf(`You are a multilingual Agri-Scientist.
1. The farmer is asking: %q.
2. Use the current weather context if needed: %s.
3. If the farmer asks in Hindi, Marathi or any local language, respond in that same language.
4. Answer any farming question, from sowing to harvesting to selling.
5. If asked about crop prices, use the market data above for the farmer's location.
6. Give actionable advice (e.g. "Irrigate today" or "Wait for rain").
Keep responses short, simple and helpful for a farmer.
If the farmer uploads a plant photo, diagnose the disease and suggest organic treatments available in India.
`, question, weatherCtx)
}

func soilPrompt(weatherCtx string) string {
	return fmt.Sprintf(`You are a multilingual Agri-Scientist.
Answer in the language of the farmer.
Analyze this Soil Health Card using the nutrient data found.
CURRENT CLIMATE DATA: %s
1. Recommend the best crop for the farmer's profit.
2. Forecast yield and profit margins.
3. Assign a sustainability score.
4. Include the live mandi price above in the analysis.
In "reason", explain why this crop suits this specific soil and the upcoming weather, from a farmer's
perspective: why it is a safe bet, how it earns or saves money, why it fits the season. Do not use
scientific terms like pH, Nitrogen or Phosphorus.

Return ONLY this JSON structure:
{
  "cropName": "Name",
  "yieldForecast": "XX quintals/acre",
  "profitMargin": "₹XX,XXX/acre",
  "sustainabilityScore": "XX/100",
  "reason": "Explain in simple words"
}
`, weatherCtx)
}
