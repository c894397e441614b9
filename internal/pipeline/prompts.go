package pipeline

// Prompt templates for the pipeline stages. Each stage makes exactly one
// CreateMessage call built from one of these templates.

const extractionSystem = "You are a proposal analyst extracting structured data from RFP documents. Return valid JSON matching the requested schema. Use empty arrays for sections with no content."

const extractionPrompt = `Analyze the following RFP document and extract its structure.

Document:
%s

Return a valid JSON object:
{
  "overview": "<2-4 sentence summary of the project>",
  "functional_requirements": ["<requirement>", ...],
  "non_functional_requirements": ["<requirement>", ...],
  "technical_specs": ["<specification>", ...],
  "business_requirements": ["<requirement>", ...],
  "keywords": ["<domain keyword>", ...],
  "risk_factors": ["<risk>", ...],
  "confidence": <0.0-1.0 overall extraction confidence>
}`

const questionSystem = "You are a proposal analyst preparing follow-up questions that close the gaps in an RFP before proposal work begins. Return valid JSON."

const questionPrompt = `An RFP has been analyzed with the following results.

Overview:
%s

Functional requirements:
%s

Business requirements:
%s

Risk factors:
%s

Generate up to %d follow-up questions that a proposal team should answer
before writing a response.%s Order questions from most to least important.

Return a valid JSON object:
{
  "questions": [
    {
      "text": "<the question>",
      "type": "<single_choice|multiple_choice|short_text|long_text|number|rating|yes_no|date|checklist>",
      "category": "<e.g. market, competition, business, persona, target_audience, users, technical, budget, timeline>",
      "priority": "<high|medium|low>",
      "context": "<why this question matters>",
      "options": ["<choice>", ...],
      "next_step_impact": "<which downstream step the answer unblocks>",
      "suggested_answer": "<best-guess answer from the document, or empty>",
      "suggested_confidence": <0.0-1.0>
    }
  ]
}`

const consolidationSystem = "You are a proposal strategist consolidating RFP analysis and stakeholder answers into actionable insights. Return valid JSON."

const consolidationPrompt = `An RFP analysis and the answers collected from stakeholders are below.

Overview:
%s

Key requirements:
%s

Answered questions:
%s

Produce consolidated insights a proposal team can act on. Return a valid JSON object:
{"consolidated_insights": ["<insight>", ...]}`

const secondarySystem = "You are a market and audience analyst. Given an RFP extraction and stakeholder answers, produce market research insights and persona insights. Return valid JSON."

const secondaryPrompt = `RFP extraction:
%s

Stakeholder answers:
%s

Return a valid JSON object:
{
  "market_research_insights": ["<insight>", ...],
  "persona_insights": ["<insight>", ...]
}`
