// Package ticket holds the domain types shared by the processing pipeline.
package ticket

// Ticket is one inbound support email. Immutable input to a pipeline run.
type Ticket struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

// Category is a member of the fixed ticket taxonomy.
type Category string

const (
	CategoryEmailVerification Category = "email_verification_issue"
	CategoryLogin             Category = "login_issue"
	CategoryPasswordReset     Category = "password_reset"
	CategorySubscription      Category = "subscription_billing"
	CategoryPaymentFailure    Category = "payment_failure"
	CategoryAccountUpdate     Category = "account_update"
	CategoryFeatureRequest    Category = "feature_request"
	CategoryBugReport         Category = "bug_report"
	CategoryTechnicalError    Category = "technical_error"
	CategoryGeneralQuestion   Category = "general_question"
	CategoryUnknown           Category = "unknown"
)

// DefaultCategory is where every unparseable or out-of-taxonomy
// classification collapses to.
const DefaultCategory = CategoryGeneralQuestion

// CategoryDefinitions steers the classifier prompt. Order matters: it is the
// order categories are enumerated in the prompt, with the sharper categories
// first so boundary cases (technical_error vs bug_report vs general_question)
// are decided against their precise definitions.
var CategoryDefinitions = []struct {
	Category   Category
	Definition string
}{
	{CategoryEmailVerification, "expired verification link, missing verification email, cannot verify account"},
	{CategoryLogin, "cannot log in, invalid credentials, 2FA issues"},
	{CategoryPasswordReset, "forgot password, password reset not working"},
	{CategorySubscription, "subscription, cancel, refund, invoice, upgrade, downgrade"},
	{CategoryPaymentFailure, "card declined, payment error, transaction failed"},
	{CategoryAccountUpdate, "change email, update profile, delete account"},
	{CategoryFeatureRequest, "asking for new features"},
	{CategoryBugReport, "reproducible product defect: crashes, broken behaviour in the app itself"},
	{CategoryTechnicalError, "error messages from infrastructure or integrations, outages, API failures"},
	{CategoryGeneralQuestion, "anything that does not fit the categories above"},
	{CategoryUnknown, "unclear or insufficient information"},
}

var validCategories = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(CategoryDefinitions))
	for _, d := range CategoryDefinitions {
		m[d.Category] = struct{}{}
	}
	return m
}()

// ValidCategory reports whether c is a member of the taxonomy.
func ValidCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// Categories returns the taxonomy in prompt order.
func Categories() []Category {
	out := make([]Category, 0, len(CategoryDefinitions))
	for _, d := range CategoryDefinitions {
		out = append(out, d.Category)
	}
	return out
}

// ClassificationResult is the classifier output. Confidence is a softmax
// probability in (0,1), or the fixed neutral default when the model output
// was unusable.
type ClassificationResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// RetrievedDoc is a knowledge-base chunk scored against one query.
// Ephemeral, produced per retrieval.
type RetrievedDoc struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Result is the packaged outcome of one pipeline run.
type Result struct {
	Reply         string         `json:"reply"`
	Category      Category       `json:"category"`
	Confidence    float64        `json:"confidence"`
	RetrievedDocs []RetrievedDoc `json:"retrieved_docs"`
}
