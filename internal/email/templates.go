package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// PaymentSuccessEmail confirms a settled donation to the donor.
type PaymentSuccessEmail struct {
	Email       string
	DonorName   string
	ProjectName string
	Amount      string // formatted major units, e.g. "5000.00"
	Currency    string
	Reference   string
	PaidAt      time.Time
}

func (e PaymentSuccessEmail) Subject() string {
	return "Thank You for Your Donation to " + e.ProjectName
}

func (e PaymentSuccessEmail) TemplateName() string {
	return "payment_success.html"
}

// PaymentFailedEmail tells the donor a recurring charge did not go through.
type PaymentFailedEmail struct {
	Email       string
	DonorName   string
	ProjectName string
	Amount      string
	Currency    string
	Reason      string
	ManageURL   string
}

func (e PaymentFailedEmail) Subject() string {
	return "Donation Payment Issue - " + e.ProjectName
}

func (e PaymentFailedEmail) TemplateName() string {
	return "payment_failed.html"
}

// PaymentReminderEmail warns the donor of an upcoming recurring charge.
type PaymentReminderEmail struct {
	Email         string
	DonorName     string
	ProjectName   string
	Amount        string
	Currency      string
	NextPaymentAt time.Time
	ManageURL     string
}

func (e PaymentReminderEmail) Subject() string {
	return "Upcoming Donation to " + e.ProjectName
}

func (e PaymentReminderEmail) TemplateName() string {
	return "payment_reminder.html"
}

// SubscriptionCancelledEmail confirms the recurring donation has stopped.
type SubscriptionCancelledEmail struct {
	Email       string
	DonorName   string
	ProjectName string
	CancelledAt time.Time
}

func (e SubscriptionCancelledEmail) Subject() string {
	return "Your Recurring Donation Has Been Cancelled"
}

func (e SubscriptionCancelledEmail) TemplateName() string {
	return "subscription_cancelled.html"
}
