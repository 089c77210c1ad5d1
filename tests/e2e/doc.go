// Package e2e indexes the coverage for the gateway's literal end-to-end
// scenarios. Each scenario is exercised at the lowest package that can
// drive its real logic without a live backend process (which a
// process-spawn e2e harness would require, and which isn't meaningfully
// testable without executing the built binary) — mirroring how the
// registry package already carries the aggregation scenario.
//
// 1. Aggregation      -> internal/registry.TestAggregationScenario
// 2. Hot add          -> internal/config.TestReloadHotAddsServer
// 3. Invalid reload   -> internal/config.TestReloadInvalidDocumentRetainsPreviousSnapshot
// 4. Timeout          -> internal/mcpclient.TestCallClassifiesSlowBackendAsTimeout
// 5. Session resume   -> internal/session.TestSessionResumePreservesSubscriptions
// 6. Crash isolation  -> internal/pool.TestCrashedBackendDoesNotAffectSiblingPoolEntry,
//                        internal/registry.TestMarkDepartedRetainsCardsWithinGrace
package e2e
