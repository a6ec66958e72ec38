package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// ChatUserMessage builds the user message for a chat analysis.
func ChatUserMessage(in analysis.Input) string {
	var b strings.Builder
	b.WriteString("Проанализируй следующую переписку администратора салона красоты с клиентом.\n")
	if in.AdminName != "" {
		fmt.Fprintf(&b, "Имя администратора: %s\n", in.AdminName)
	}
	if in.Source != "" {
		fmt.Fprintf(&b, "Платформа: %s\n", in.Source)
	}
	b.WriteString("\nПЕРЕПИСКА:\n")
	b.WriteString(in.Text)
	b.WriteString("\n\nДай детальный анализ по всем этапам и каждому сообщению администратора.")
	return b.String()
}

// CallUserMessage builds the user message for a call analysis.
func CallUserMessage(transcript, adminName string) string {
	var b strings.Builder
	b.WriteString("Проанализируй следующую транскрипцию телефонного звонка администратора салона красоты.\n")
	if adminName != "" {
		fmt.Fprintf(&b, "Имя администратора: %s\n", adminName)
	}
	b.WriteString("\nТРАНСКРИПЦИЯ ЗВОНКА:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nДай детальный анализ по всем 7 этапам продаж. Будь конкретным, цитируй реальные фразы из транскрипции.")
	return b.String()
}

// PracticalCaseMessage builds the user message for a practical case answer.
func PracticalCaseMessage(scenario, response, adminName string) string {
	var b strings.Builder
	b.WriteString("Оцени ответ администратора на практический кейс.\n")
	if adminName != "" {
		fmt.Fprintf(&b, "Имя администратора: %s\n", adminName)
	}
	fmt.Fprintf(&b, "\nКЕЙС (ситуация):\n%s\n\nОТВЕТ АДМИНИСТРАТОРА:\n%s\n\n", scenario, response)
	b.WriteString("Дай честную оценку с конкретными примерами и рекомендациями.")
	return b.String()
}

// RoleplayMessage builds the user message for a roleplay answer.
func RoleplayMessage(clientPhrase, response, adminName string) string {
	var b strings.Builder
	b.WriteString("Оцени ответ администратора на ролевую ситуацию.\n")
	if adminName != "" {
		fmt.Fprintf(&b, "Имя администратора: %s\n", adminName)
	}
	fmt.Fprintf(&b, "\nФРАЗА КЛИЕНТА:\n%q\n\nОТВЕТ АДМИНИСТРАТОРА:\n%q\n\n", clientPhrase, response)
	b.WriteString("Оцени структуру ответа, уверенность, слова-паразиты и уровень страха звонков.")
	return b.String()
}

// QA is one question with the administrator's answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func formatQA(answers []QA) string {
	parts := make([]string, 0, len(answers))
	for i, qa := range answers {
		parts = append(parts, fmt.Sprintf("Вопрос %d: %s\nОтвет: %s", i+1, qa.Question, qa.Answer))
	}
	return strings.Join(parts, "\n\n")
}

// ProductFacts is the catalog data a product test is graded against.
type ProductFacts struct {
	Name            string
	Characteristics string
	Advantages      string
	Benefits        string
	Price           float64
	TargetAudience  string
	Objections      map[string]string
}

// ProductKnowledgeSystemPrompt embeds the product facts into the grading prompt.
func ProductKnowledgeSystemPrompt(p ProductFacts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Продукт: %s\nХарактеристики: %s\nПреимущества: %s\nВыгоды для клиента: %s\n",
		p.Name, p.Characteristics, p.Advantages, p.Benefits)
	if p.Price > 0 {
		fmt.Fprintf(&b, "Цена: %s руб.\n", formatPrice(p.Price))
	}
	if p.TargetAudience != "" {
		fmt.Fprintf(&b, "Целевая аудитория: %s\n", p.TargetAudience)
	}
	if len(p.Objections) > 0 {
		raw, _ := json.Marshal(p.Objections)
		fmt.Fprintf(&b, "Частые возражения и ответы: %s\n", raw)
	}
	return strings.Replace(productKnowledgeSystemPrompt, "{{PRODUCT}}", b.String(), 1)
}

func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// ProductKnowledgeMessage builds the user message for a product test.
func ProductKnowledgeMessage(productName string, answers []QA) string {
	return fmt.Sprintf("Оцени знание администратором продукта %q.\n\nОТВЕТЫ АДМИНИСТРАТОРА:\n%s", productName, formatQA(answers))
}

// CRMKnowledgeMessage builds the user message for a CRM test.
func CRMKnowledgeMessage(answers []QA, adminName string) string {
	var b strings.Builder
	b.WriteString("Оцени знание администратором работы с CRM и клиентской базой.\n")
	if adminName != "" {
		fmt.Fprintf(&b, "Имя администратора: %s\n", adminName)
	}
	fmt.Fprintf(&b, "\nОТВЕТЫ АДМИНИСТРАТОРА:\n%s\n\n", formatQA(answers))
	b.WriteString("Дай честную оценку с конкретными рекомендациями по улучшению работы с базой клиентов.")
	return b.String()
}

// CardInput summarizes the material an administrator card is generated from.
type CardInput struct {
	AdminName   string
	CallScores  []float64
	ChatScores  []float64
	TestSummary any
}

// AdminCardMessage builds the user message for administrator card generation.
func AdminCardMessage(in CardInput) string {
	var b strings.Builder
	b.WriteString("Сформируй итоговую карточку администратора на основе результатов оценки.\n\n")
	fmt.Fprintf(&b, "Имя администратора: %s\n\n", in.AdminName)
	if len(in.CallScores) > 0 {
		fmt.Fprintf(&b, "РЕЗУЛЬТАТЫ АНАЛИЗА ЗВОНКОВ (%d звонков):\nСредняя оценка: %.1f/10\n\n", len(in.CallScores), Average(in.CallScores))
	}
	if len(in.ChatScores) > 0 {
		fmt.Fprintf(&b, "РЕЗУЛЬТАТЫ АНАЛИЗА ПЕРЕПИСОК (%d переписок):\nСредняя оценка: %.1f/10\n\n", len(in.ChatScores), Average(in.ChatScores))
	}
	if in.TestSummary != nil {
		raw, _ := json.MarshalIndent(in.TestSummary, "", "  ")
		fmt.Fprintf(&b, "РЕЗУЛЬТАТЫ ТЕСТОВ:\n%s\n\n", raw)
	}
	b.WriteString("Оцени каждый навык по шкале 1-10 и составь план развития.")
	return b.String()
}

// Average returns the arithmetic mean, or 0 for no values.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
