// Package pipeline defines the fixed production pipeline every project moves
// through: the ordered stage tags, the per-stage payload variants and their
// registry, and the pure transition functions over Project values.
//
// Transitions never mutate their input; they return an updated copy. Only the
// orthogonal flags processing, error, and review are stored on a project. The
// ready and waiting states are derived by EffectiveStatus from the payload of
// the current stage, so a stored status can never disagree with the data.
package pipeline
