package tools

// Input schemas for the tool catalog. Property types, required sets,
// enums and length bounds live here; the validator compiles each schema
// once and caches it.

const schemaEmpty = `{
	"type": "object",
	"properties": {},
	"additionalProperties": false
}`

const schemaContextStore = `{
	"type": "object",
	"properties": {
		"content": {"type": "string", "minLength": 1, "maxLength": 10000},
		"type": {"type": "string", "enum": ["code","decision","error","discussion","planning","completion","milestone","reflections","handoff"]},
		"tags": {"type": "array", "items": {"type": "string", "maxLength": 50}, "maxItems": 20},
		"relevanceScore": {"type": "number", "minimum": 0, "maximum": 10},
		"metadata": {"type": "object"},
		"projectId": {"type": "string"},
		"sessionId": {"type": "string"}
	},
	"required": ["content", "type"],
	"additionalProperties": false
}`

const schemaContextSearch = `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"type": {"type": "string", "enum": ["code","decision","error","discussion","planning","completion","milestone","reflections","handoff"]},
		"tags": {"type": "array", "items": {"type": "string"}},
		"limit": {"type": "number", "minimum": 1, "maximum": 50},
		"minSimilarity": {"type": "number", "minimum": 0, "maximum": 100},
		"projectId": {"type": "string"}
	},
	"required": ["query"],
	"additionalProperties": false
}`

const schemaContextGetRecent = `{
	"type": "object",
	"properties": {
		"limit": {"type": "number", "minimum": 1, "maximum": 20},
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaContextStats = `{
	"type": "object",
	"properties": {
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaContextDelete = `{
	"type": "object",
	"properties": {
		"contextId": {"type": "string", "minLength": 1},
		"projectId": {"type": "string", "minLength": 1}
	},
	"required": ["contextId", "projectId"],
	"additionalProperties": false
}`

const schemaProjectList = `{
	"type": "object",
	"properties": {
		"includeStats": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const schemaProjectCreate = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"gitRepoUrl": {"type": "string"},
		"rootDirectory": {"type": "string"},
		"metadata": {"type": "object"}
	},
	"required": ["name"],
	"additionalProperties": false
}`

const schemaProjectRef = `{
	"type": "object",
	"properties": {
		"project": {"type": "string", "minLength": 1}
	},
	"required": ["project"],
	"additionalProperties": false
}`

const schemaProjectDelete = `{
	"type": "object",
	"properties": {
		"projectId": {"type": "string", "minLength": 1}
	},
	"required": ["projectId"],
	"additionalProperties": false
}`

const schemaDecisionRecord = `{
	"type": "object",
	"properties": {
		"decisionType": {"type": "string", "enum": ["architecture","library","framework","database","api_design","naming_convention","code_style","testing","deployment","security","performance","ui_ux","data_model","tool_choice","process"]},
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"rationale": {"type": "string", "minLength": 1},
		"impactLevel": {"type": "string", "enum": ["low","medium","high","critical"]},
		"alternativesConsidered": {"type": "array", "items": {
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"pros": {"type": "array", "items": {"type": "string"}},
				"cons": {"type": "array", "items": {"type": "string"}},
				"reasonRejected": {"type": "string"}
			},
			"required": ["name"],
			"additionalProperties": false
		}},
		"problemStatement": {"type": "string"},
		"affectedComponents": {"type": "array", "items": {"type": "string"}},
		"tags": {"type": "array", "items": {"type": "string"}},
		"projectId": {"type": "string"}
	},
	"required": ["decisionType", "title", "description", "rationale", "impactLevel"],
	"additionalProperties": false
}`

const schemaDecisionSearch = `{
	"type": "object",
	"properties": {
		"query": {"type": "string"},
		"decisionType": {"type": "string", "enum": ["architecture","library","framework","database","api_design","naming_convention","code_style","testing","deployment","security","performance","ui_ux","data_model","tool_choice","process"]},
		"impactLevel": {"type": "string", "enum": ["low","medium","high","critical"]},
		"outcomeStatus": {"type": "string", "enum": ["unknown","successful","failed","mixed","too_early"]},
		"tags": {"type": "array", "items": {"type": "string"}},
		"limit": {"type": "number", "minimum": 1, "maximum": 50},
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaDecisionUpdate = `{
	"type": "object",
	"properties": {
		"decisionId": {"type": "string", "minLength": 1},
		"outcomeStatus": {"type": "string", "enum": ["unknown","successful","failed","mixed","too_early"]},
		"outcomeNotes": {"type": "string"},
		"lessonsLearned": {"type": "string"},
		"projectId": {"type": "string"}
	},
	"required": ["decisionId"],
	"additionalProperties": false
}`

const schemaDecisionStats = `{
	"type": "object",
	"properties": {
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaDecisionDelete = `{
	"type": "object",
	"properties": {
		"decisionId": {"type": "string", "minLength": 1},
		"projectId": {"type": "string"}
	},
	"required": ["decisionId"],
	"additionalProperties": false
}`

const schemaTaskCreate = `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"type": {"type": "string"},
		"priority": {"type": "string", "enum": ["low","medium","high","urgent"]},
		"assignedTo": {"type": "string"},
		"createdBy": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"dependencies": {"type": "array", "items": {"type": "string"}},
		"metadata": {"type": "object"},
		"projectId": {"type": "string"}
	},
	"required": ["title"],
	"additionalProperties": false
}`

const schemaTaskList = `{
	"type": "object",
	"properties": {
		"status": {"type": "string"},
		"statuses": {"type": "array", "items": {"type": "string", "enum": ["todo","in_progress","blocked","completed","cancelled"]}},
		"priority": {"type": "string", "enum": ["low","medium","high","urgent"]},
		"assignedTo": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"phase": {"type": "string"},
		"type": {"type": "string"},
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaTaskUpdate = `{
	"type": "object",
	"properties": {
		"taskId": {"type": "string", "minLength": 1},
		"status": {"type": "string", "enum": ["todo","in_progress","blocked","completed","cancelled"]},
		"assignedTo": {"type": "string"},
		"metadata": {"type": "object"},
		"projectId": {"type": "string"}
	},
	"required": ["taskId", "status"],
	"additionalProperties": false
}`

const schemaTaskDetails = `{
	"type": "object",
	"properties": {
		"taskId": {"type": "string", "minLength": 1},
		"projectId": {"type": "string"}
	},
	"required": ["taskId"],
	"additionalProperties": false
}`

const schemaTaskBulkUpdate = `{
	"type": "object",
	"properties": {
		"task_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"status": {"type": "string", "enum": ["todo","in_progress","blocked","completed","cancelled"]},
		"assignedTo": {"type": "string"},
		"metadata": {"type": "object"},
		"projectId": {"type": "string"}
	},
	"required": ["task_ids", "status"],
	"additionalProperties": false
}`

const schemaTaskProgressSummary = `{
	"type": "object",
	"properties": {
		"groupBy": {"type": "string", "enum": ["phase","status","priority","type","assignedTo"]},
		"projectId": {"type": "string"}
	},
	"required": ["groupBy"],
	"additionalProperties": false
}`

const schemaTaskDelete = `{
	"type": "object",
	"properties": {
		"taskId": {"type": "string", "minLength": 1},
		"projectId": {"type": "string"}
	},
	"required": ["taskId"],
	"additionalProperties": false
}`

const schemaToolName = `{
	"type": "object",
	"properties": {
		"toolName": {"type": "string", "minLength": 1}
	},
	"required": ["toolName"],
	"additionalProperties": false
}`

const schemaSmartSearch = `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"limit": {"type": "number", "minimum": 1, "maximum": 50},
		"projectId": {"type": "string"}
	},
	"required": ["query"],
	"additionalProperties": false
}`

const schemaRecommendations = `{
	"type": "object",
	"properties": {
		"focus": {"type": "string"},
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`

const schemaProjectInsights = `{
	"type": "object",
	"properties": {
		"projectId": {"type": "string"}
	},
	"additionalProperties": false
}`
