package ai

import "strings"

func classifyPrompt(categories []string) string {
	return "You are a financial transaction categorizer. Classify each transaction " +
		"into exactly one of these categories: " + strings.Join(categories, ", ") + ".\n\n" +
		"Return a JSON object with:\n" +
		"- \"results\": an array of objects with \"id\" (the transaction id), " +
		"\"category\" (exact category name from the list), and \"confidence\" " +
		"(0.0-1.0, how confident you are).\n\n" +
		"Return ONLY valid raw JSON. Do NOT wrap the response in code fences. " +
		"Use the exact category names provided."
}

func receiptPrompt(categories []string) string {
	return "Extract all line items from this receipt. For each item return:\n" +
		"- name: the item description\n" +
		"- amount: the dollar amount (positive number)\n\n" +
		"Also extract: merchant name, date, subtotal, tax, total.\n\n" +
		"Then categorize each line item into one of these categories: " +
		strings.Join(categories, ", ") + ".\n\n" +
		"Return JSON: {\n" +
		"  \"merchant\": \"string\",\n" +
		"  \"date\": \"string\",\n" +
		"  \"subtotal\": number,\n" +
		"  \"tax\": number,\n" +
		"  \"total\": number,\n" +
		"  \"line_items\": [{ \"name\": \"string\", \"amount\": number, " +
		"\"category\": \"exact category name\", \"confidence\": 0.0-1.0 }]\n" +
		"}\n\n" +
		"Use the exact category names provided. Return ONLY valid raw JSON " +
		"with no code fences."
}
