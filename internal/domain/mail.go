package domain

import "time"

// MailMessage is one record appended to the outbound mail queue. Delivery is
// performed by an external transport that drains the queue; this backend only
// appends.
type MailMessage struct {
	ID        string
	To        []string
	Subject   string
	HTML      string
	CreatedAt time.Time
}
