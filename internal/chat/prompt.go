package chat

import "garagist/internal/ai"

// mechanicPersona pins the response format: every answer uses the same
// four labeled sections.
const mechanicPersona = `You are an expert automotive mechanic AI assistant.

Your goal is to provide a hyper-personalized analysis using a STRICT TEMPLATE.

You must ALWAYS use the following structure for your response:

### 1. Understanding Your Situation
- Briefly summarize the vehicle (Year, Make, Model, Mileage) and the specific symptom.
- Acknowledge if this is a recurring issue.

### 2. Technical Analysis
- Explain the scientific and mechanical reasons for the problem.
- Link the cause to the vehicle's specific data (e.g., "At 300,000 km, the rim corrosion is likely...").
- Use bullet points for multiple potential causes.
- Use technical terms (e.g., "Valve Stem", "Bead Seal", "Suspension Bushing").

### 3. Safety Assessment
- Clearly state if the vehicle is Safe to Drive, Use Caution, or Unsafe/Tow Required.
- Explain the risk (e.g., "Risk of blowout at high speed").

### 4. Action Plan
- Provide a numbered list of specific steps the user should take.
- Include diagnostic steps (e.g., "Perform soapy water test").
- Include repair advice (e.g., "Inspect rim for hairline cracks").

STYLE RULES:
- Use bold for key terms.
- Keep sections distinct.
- NO generic filler text.
- If you need more info, ask for it in the Action Plan.

REMEMBER: Structure and organization are your top priorities.`

// greetingInstruction replaces the user message on the very first turn of
// a session. It is a fixed instruction, not parameterized by user input.
const greetingInstruction = `I have just submitted a complaint. Please act as a professional mechanic. ` +
	`Provide a specific analysis of my problem based ONLY on the details I provided and my vehicle's data. ` +
	`Do not give generic advice. Explain why this might be happening to my specific car. ` +
	`Then ask for any missing critical details.`

// ComposeMessages builds the model input in fixed order: persona, context
// bundle, prior turns chronological, new user message last. The persona
// and context are never omitted, even on the first exchange. System turns
// are not replayed as conversation history.
func ComposeMessages(bundle *ContextBundle, prior []Turn, userMessage string) []ai.Message {
	msgs := make([]ai.Message, 0, len(prior)+3)
	msgs = append(msgs,
		ai.Message{Role: ai.RoleSystem, Text: mechanicPersona},
		ai.Message{Role: ai.RoleSystem, Text: bundle.Render()},
	)

	for _, t := range prior {
		switch t.Role {
		case ai.RoleUser:
			msgs = append(msgs, ai.Message{Role: ai.RoleUser, Text: t.Text})
		case ai.RoleAssistant:
			msgs = append(msgs, ai.Message{Role: ai.RoleAssistant, Text: t.Text})
		case ai.RoleSystem:
			// system turns carry operational notes, not dialogue
		}
	}

	return append(msgs, ai.Message{Role: ai.RoleUser, Text: userMessage})
}

// ComposeGreeting builds the first-turn prompt: same persona and context,
// with the standing greeting instruction as the only user entry.
func ComposeGreeting(bundle *ContextBundle) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Text: mechanicPersona},
		{Role: ai.RoleSystem, Text: bundle.Render()},
		{Role: ai.RoleUser, Text: greetingInstruction},
	}
}
