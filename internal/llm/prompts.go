package llm

import _ "embed"

var (
	//go:embed prompts/chat.txt
	ChatSystemPrompt string
	//go:embed prompts/call.txt
	CallSystemPrompt string
	//go:embed prompts/practical_case.txt
	PracticalCaseSystemPrompt string
	//go:embed prompts/roleplay.txt
	RoleplaySystemPrompt string
	//go:embed prompts/crm_knowledge.txt
	CRMKnowledgeSystemPrompt string
	//go:embed prompts/admin_card.txt
	AdminCardSystemPrompt string

	//go:embed prompts/product_knowledge.txt
	productKnowledgeSystemPrompt string
)

// DefaultPracticalCase is the scenario used when a practical case test names none.
const DefaultPracticalCase = "Вам звонит клиент, который был у вас полгода назад. Напишите полный диалог — как вы построите разговор."
