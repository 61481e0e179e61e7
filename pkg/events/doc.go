/*
Package events implements a small in-process pub/sub broker used to
wake up backend handles that share the same underlying store when one
of them writes.

pkg/backend/memory and pkg/backend/remote's Server are the current
publishers: every successful Write/TryWrite calls Broker.Publish with
the new version and the writer's participant id, and TargetWait holds
a Subscriber and blocks on it (with a polling fallback, since a dropped
notification must never cause TargetWait to hang forever).

Non-blocking publish, fan-out delivery, and best-effort (drop-on-full)
subscriber buffers are deliberate: a missed notification only delays a
backend's next read by one polling interval, it never produces stale
data, so there is nothing to retry or acknowledge.
*/
package events
