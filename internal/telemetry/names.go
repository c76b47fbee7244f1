package telemetry

// Grouping pipeline metrics
const (
	MetricRebuilds         = "grouping.rebuilds"
	MetricRebuildTime      = "grouping.rebuild_time"
	MetricGroupsEmitted    = "grouping.groups_emitted"
	MetricGroupsDegraded   = "grouping.groups_degraded"
	MetricPersistFailures  = "grouping.persist_failures"
	MetricLastRebuild      = "grouping.last_rebuild"
	MetricReassigns        = "grouping.reassigns"
	MetricReassignFailures = "grouping.reassign_failures"
	MetricZeroNormNudges   = "grouping.zero_norm_nudges"
	MetricGateAdmits       = "grouping.gate.admits"
	MetricGateDenials      = "grouping.gate.denials"
	MetricItemsIngested    = "store.items_ingested"
	MetricItemCount        = "store.item_count"
)

// Namer metrics
const (
	MetricAPICallsAnthropic = "namer.api_calls.anthropic"
	MetricAPICallsOpenAI    = "namer.api_calls.openai"
	MetricAPICallsGoogle    = "namer.api_calls.google"

	MetricAPICallsSuccess = "namer.api_calls.success"
	MetricAPICallsFailure = "namer.api_calls.failure"

	MetricRetryAttempts = "namer.retry_attempts"
	MetricRetrySuccess  = "namer.retry_success"

	MetricFallbackAttempts = "namer.fallback_attempts"
	MetricFallbackSuccess  = "namer.fallback_success"
	MetricKeywordFallbacks = "namer.keyword_fallbacks"

	MetricCacheHits   = "namer.cache.hits"
	MetricCacheMisses = "namer.cache.misses"
	MetricCacheSize   = "namer.cache.size"

	MetricResponseTimeAnthropic = "namer.response_time.anthropic"
	MetricResponseTimeOpenAI    = "namer.response_time.openai"
	MetricResponseTimeGoogle    = "namer.response_time.google"
	MetricNamingTime            = "namer.total_time"

	MetricProviderHealthAnthropic = "namer.health.anthropic"
	MetricProviderHealthOpenAI    = "namer.health.openai"
	MetricProviderHealthGoogle    = "namer.health.google"
)
