package provider

import (
	"encoding/json"
	"fmt"
	"os"
)

// CategoryMap maps the provider's category labels onto household category
// names. It is versioned configuration data, not logic: deployments can
// override the default with a JSON file.
type CategoryMap map[string]string

// defaultCategoryMap covers the provider's personal-finance category
// taxonomy. Labels with no entry leave the transaction uncategorized.
var defaultCategoryMap = CategoryMap{
	"INCOME":              "Income",
	"TRANSFER_IN":         "Income",
	"FOOD_AND_DRINK":      "Food & Dining",
	"TRANSPORTATION":      "Transportation",
	"TRAVEL":              "Transportation",
	"GENERAL_MERCHANDISE": "Shopping",
	"ENTERTAINMENT":       "Entertainment",
	"RECREATION":          "Entertainment",
	"MEDICAL":             "Health",
	"RENT_AND_UTILITIES":  "Utilities",
	"UTILITIES":           "Utilities",
	"INSURANCE":           "Insurance",
	"EDUCATION":           "Education",
	"PERSONAL_CARE":       "Personal Care",
	"LOAN_PAYMENTS":       "Housing",
	"HOME_IMPROVEMENT":    "Housing",
	"MORTGAGE":            "Housing",
	"TRANSFER_OUT":        "Savings & Investments",
	"INVESTMENT":          "Savings & Investments",
	"SAVINGS":             "Savings & Investments",
}

// LoadCategoryMap returns the category map to use. When path is empty the
// embedded default is returned; otherwise the file must contain a JSON
// object of label -> category name.
func LoadCategoryMap(path string) (CategoryMap, error) {
	if path == "" {
		m := make(CategoryMap, len(defaultCategoryMap))
		for k, v := range defaultCategoryMap {
			m[k] = v
		}
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category map %s: %w", path, err)
	}
	var m CategoryMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing category map %s: %w", path, err)
	}
	return m, nil
}

// Lookup resolves a provider label to a household category name.
func (m CategoryMap) Lookup(label string) (string, bool) {
	name, ok := m[label]
	return name, ok
}
