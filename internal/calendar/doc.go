// Package calendar provides a client for interacting with the Google Calendar API.
//
// The client is the remote event store for lesson sync: it lists recurring
// events (not their expanded instances), imports new events under their
// lesson UID, updates and deletes them. Every event carries a source tag
// so the sync can tell its own events from a person's private ones.
//
// Recurrence is always weekly with an interval of one or two weeks and an
// end date, written and read as an RRULE line.
//
// Example usage:
//
//	ts, err := auth.TokenSource(ctx, "student@nubip.edu.ua")
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, ts, "primary", loc)
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListEvents(ctx, time.Now().AddDate(0, 0, -30), time.Now().AddDate(0, 0, 14))
package calendar
