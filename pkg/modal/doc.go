// Package modal fetches server-rendered modal fragments and shows them.
//
// Activating a new, edit or delete affordance sends exactly one request to
// the affordance's href with the method bound to its intent, injects the
// returned fragment into the modal container and shows the intent's modal.
// Concurrent activations are not deduplicated; only the most recently
// issued response for a container is injected, older ones are dropped.
//
// Confirm covers the delete-confirmation flow: POST to the confirm URL,
// then navigate to the listing and ask its data table to refresh.
package modal
