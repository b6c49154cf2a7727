package ai

// Note types supported by the structuring engine.
const (
	NoteTypeSOAP      = "SOAP"
	NoteTypeProgress  = "PROGRESS"
	NoteTypeDischarge = "DISCHARGE"
)

// requiredKeys lists the exact output keys each note type must contain.
var requiredKeys = map[string][]string{
	NoteTypeSOAP:      {"subjective", "objective", "assessment", "plan"},
	NoteTypeProgress:  {"interval_history", "exam", "impression", "plan"},
	NoteTypeDischarge: {"admission_diagnosis", "hospital_course", "discharge_condition", "discharge_medication", "follow_up"},
}

// RequiredKeys returns the output keys for a note type, defaulting to SOAP
// for unknown types.
func RequiredKeys(noteType string) []string {
	if keys, ok := requiredKeys[noteType]; ok {
		return keys
	}
	return requiredKeys[NoteTypeSOAP]
}

// IsValidNoteType reports whether noteType is one of the supported values.
func IsValidNoteType(noteType string) bool {
	_, ok := requiredKeys[noteType]
	return ok
}

const safetyDirectives = `
SAFETY & COMPLIANCE RULES:
1. NON-PRESCRIPTIVE: You are an observer and formatter. NEVER use words like "Recommend", "Prescribe", "Suggest", "Advise", or "Should".
2. ATTRIBUTION: Instead of "Plan to start X", write "Clinician plans to start X" or "Prescription noted for X".
3. NO HALLUCINATION: If distinct medical values (vitals, labs) are not in the source text, strictly output "Not documented".
4. OBSERVATIONAL: Use passive, observational language (e.g., "Patient reports..." instead of "Patient has...").
5. UNCERTAINTY: If the input is vague, reflect that vagueness. Do not guess.
`

const soapPrompt = `You are a Clinical Documentation Assistant. Your task is to convert unstructured clinical notes into a structured SOAP (Subjective, Objective, Assessment, Plan) format.

SOAP FORMAT:
- Subjective: Patient's reports, history, and symptoms. (Use "Patient reports...", "Patient states...")
- Objective: Physical exam findings, vitals, labs, and measurable data. (Only strictly observed data)
- Assessment: Summary of status based on provided data. (Use "Assessment indicates..." or "status appears...")
- Plan: Documented next steps, follow-up, or education. (Use "Clinician plan includes...", "Ordered...", "Discussed...")
` + safetyDirectives + `
Output strictly valid JSON with keys: "subjective", "objective", "assessment", "plan".`

const progressPrompt = `You are a Clinical Documentation Assistant. Your task is to convert unstructured text into a structured Clinical Progress Note.

FORMAT:
- Interval History: Events or changes since last visit.
- Exam: Current physical findings and observations.
- Impression: Current status of problems (Improving, Worsening, Stable).
- Plan: Changes to medication or care plan.
` + safetyDirectives + `
Output strictly valid JSON with keys: "interval_history", "exam", "impression", "plan".`

const dischargePrompt = `You are a Clinical Documentation Assistant. Your task is to format a Hospital Discharge Summary.

FORMAT:
- Admission Diagnosis: Reason for admission.
- Hospital Course: Brief summary of treatment and progress.
- Discharge Condition: Stable, Improved, etc.
- Discharge Medication: List of meds to take home.
- Follow Up: Instructions for next appointment.
` + safetyDirectives + `
Output strictly valid JSON with keys: "admission_diagnosis", "hospital_course", "discharge_condition", "discharge_medication", "follow_up".`

var prompts = map[string]string{
	NoteTypeSOAP:      soapPrompt,
	NoteTypeProgress:  progressPrompt,
	NoteTypeDischarge: dischargePrompt,
}

// promptFor returns the system prompt for a note type, defaulting to SOAP.
func promptFor(noteType string) string {
	if p, ok := prompts[noteType]; ok {
		return p
	}
	return prompts[NoteTypeSOAP]
}

const summaryPrompt = "You are a senior clinical documentation assistant. Summarize the patient clinical history into a professional, concise summary. Stick to facts entered. No advice."
