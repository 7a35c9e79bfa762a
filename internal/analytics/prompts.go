package analytics

const sentimentPrompt = `You are a sentiment analysis expert. Analyze the overall tone and sentiment of news text.
Return your analysis as JSON with:
- overall: "positive", "negative", or "neutral"
- score: {positive: 0.0-1.0, negative: 0.0-1.0, neutral: 0.0-1.0} (must sum to 1.0)
- reasoning: brief explanation

Analyze sentiment of:

%s`

const biasPrompt = `You are a media bias detection expert. Analyze news text for bias indicators.
Return JSON with:
- score: {
    political_lean: "left" | "center-left" | "center" | "center-right" | "right" | "unknown",
    lean_score: -1.0 to 1.0 (negative=left, positive=right),
    loaded_language_count: number of loaded/emotional words,
    emotional_language_score: 0.0-1.0
  }
- indicators: {
    loaded_terms: [list of biased words/phrases found],
    omissions: [potential important omissions],
    framing: brief description of how story is framed
  }

Analyze bias in:

%s`

const factCheckPrompt = `You are a fact-checking expert. Extract factual claims from news text and assess their veracity.
Return JSON with:
- fact_checks: array of {
    claim: "specific factual claim",
    verdict: "true" | "false" | "partially-true" | "unverified" | "misleading",
    confidence: 0.0-1.0,
    explanation: brief reasoning,
    sources: [relevant sources if available]
  }

Focus on verifiable facts, not opinions. Mark as "unverified" if you cannot determine accuracy.

Extract and verify claims from:

%s`

const predictionsPrompt = `You are a geopolitical analyst and forecaster. Based on current events, predict likely future developments.
Return JSON with:
- predictions: array of {
    scenario: "description of what might happen",
    probability: 0.0-1.0 (estimated likelihood),
    timeframe: "short-term" | "medium-term" | "long-term",
    reasoning: explanation of why this might happen,
    related_events: [list of current events that support this prediction]
  }

Provide 3-5 diverse predictions ranging from likely to possible.

Based on these events, predict what might happen next:

%s`

const eventsPrompt = `You are an event extraction expert. Identify discrete events from news text.
Return JSON with:
- events: array of {
    title: "brief event title",
    description: "1-2 sentence description",
    timestamp: "ISO date/time if mentioned, or null",
    category: "political" | "economic" | "social" | "conflict" | "disaster" | "technology" | "other",
    importance: 1-10 (how significant is this event)
  }

Extract 5-10 most important events.

Extract key events from:

%s`
