package chat

import (
	"strings"

	"storefront/internal/models"
)

const (
	maxProductActions  = 3
	maxCategoryActions = 2
)

// WelcomeText greets a new chat
const WelcomeText = "Hi! I'm your electronics assistant. I can help you find components, answer technical questions, or suggest products for your projects. What are you working on?"

// WelcomeActions are the starter searches shown with the greeting
func WelcomeActions() []models.ChatAction {
	return []models.ChatAction{
		searchAction("Browse ESP32 Boards", "ESP32"),
		searchAction("View All Sensors", "sensors"),
		searchAction("Arduino Compatible", "Arduino"),
	}
}

// SuggestActions matches the user text and the reply against product and category keywords
func SuggestActions(products []models.Product, texts ...string) []models.ChatAction {
	haystack := strings.ToLower(strings.Join(texts, "\n"))
	actions := []models.ChatAction{}

	matched := 0
	for _, p := range products {
		if matched == maxProductActions {
			break
		}
		kw := productKeyword(p.Name)
		if kw == "" || !strings.Contains(haystack, kw) {
			continue
		}
		actions = append(actions, models.ChatAction{
			Type:  "product",
			Label: "View " + p.Name,
			Data:  map[string]string{"productId": p.ID},
		})
		matched++
	}

	seen := map[string]bool{}
	categories := 0
	for _, p := range products {
		if categories == maxCategoryActions {
			break
		}
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		singular := strings.TrimSuffix(strings.ToLower(p.Category), "s")
		if singular == "" || !strings.Contains(haystack, singular) {
			continue
		}
		actions = append(actions, searchAction("Browse "+p.Category, p.Category))
		categories++
	}
	return actions
}

// productKeyword is the first word of the name, which is the model or brand for every catalog entry
func productKeyword(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	kw := strings.ToLower(strings.Trim(fields[0], `.,:;"'()`))
	if len(kw) < 3 {
		return ""
	}
	return kw
}

func searchAction(label, query string) models.ChatAction {
	return models.ChatAction{
		Type:  "search",
		Label: label,
		Data:  map[string]string{"query": query, "label": label},
	}
}
