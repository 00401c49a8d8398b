// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package retrain implements the retraining decision pipeline.

A run moves through the states

	Idle -> Gated -> Loading -> Training -> Evaluating -> Promoting|Discarding -> Idle

and stops at Gated when fewer samples than the threshold have accumulated.
The controller holds the ledger lock from the gate to the end of the run
and reads the ledger once, so every decision in the run uses the same
count and current version.

Every check that can fail (loading samples, reading the production
artifact, fitting, evaluating) happens before the first write. A promotion
writes in this order:

 1. the new artifact (write-once)
 2. the metadata record
 3. the ledger, in one atomic write: count 0, last trained now, new version
 4. removal of the drained samples

A discard performs only steps 3 (version unchanged) and 4. A crash between
steps leaves at worst an artifact or record for a version the ledger does
not point to; the next promotion skips past it because the new version is
one above the larger of the ledger version and the newest stored artifact.
*/
package retrain
