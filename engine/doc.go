// Package engine provides the training and evaluation loop drivers and the
// contracts they expose to the rest of the library:
//
//   - Handler (per-step behavior, wrapped transparently by the comparer)
//   - Model (state-dict access for parameter comparison)
//   - Loader (batch access; datasets themselves are out of scope)
//   - Manager (iteration/epoch progress, evaluated by triggers)
//
// Trainer and Evaluator are the two recognized engine kinds. Both drive
// their Handler through a fixed lifecycle and are otherwise opaque to the
// comparison machinery, which only swaps the handler slot and calls Run.
package engine
