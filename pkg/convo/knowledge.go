package convo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
	"github.com/voxstore/voxstore/pkg/store"
)

// System fact tags used by the knowledge injector.
const (
	tagOrderLookup   = "order-lookup"
	tagOrderNotFound = "order-not-found"
	tagKnowledgeBase = "order-knowledge-base"
)

var (
	// Explicit "order N" phrasing: "order number is 1003", "order #1003",
	// "order no. 1003", "order 1003". Requires 3+ digits.
	orderNumberPattern = regexp.MustCompile(`(?i)order\s*(?:number|no\.?|#)?(?:\s*(?:is|:))?\s*(\d{3,})`)

	// Fallback: any standalone 3+ digit run. 3+ digits keeps order numbers
	// like 1003 while ignoring tiny integers like "2".
	standalonePattern = regexp.MustCompile(`\b(\d{3,})\b`)
)

// intentKeywords mark an order-status request.
var intentKeywords = []string{"order status", "track my order", "check my order", "order update"}

// statusHints are the fixed tone instructions per order status.
var statusHints = map[store.Status]string{
	store.StatusPending:    "is pending and awaiting processing. Let the customer know we'll update them once it starts moving.",
	store.StatusProcessing: "is being prepared right now. Share a reassuring update and let them know we'll notify them once it ships.",
	store.StatusShipped:    "has shipped. Review the provided delivery estimate and repeat it back accurately.",
	store.StatusDelivered:  "has already been delivered. Confirm the delivery date and offer follow-up help if needed.",
	store.StatusCancelled:  "was cancelled. Clarify the cancellation and offer to help place a new order if appropriate.",
}

// KnowledgeInjector watches transcribed user text, extracts order
// numbers, looks them up in the order store, and injects deduplicated
// system facts into the LLM context. The text frame itself always
// continues unchanged; this stage only side-effects the context.
type KnowledgeInjector struct {
	store   *store.Store
	context Appender
	logger  *slog.Logger

	awaitingOrderNumber bool
	lastOrderNumber     string
	lastFacts           map[string]string
}

// NewKnowledgeInjector creates the injector. The context appender is the
// only capability required from the LLM context.
func NewKnowledgeInjector(st *store.Store, appender Appender) *KnowledgeInjector {
	return &KnowledgeInjector{
		store:     st,
		context:   appender,
		logger:    slog.Default().With("component", "knowledge"),
		lastFacts: make(map[string]string),
	}
}

// Name implements pipeline.Stage.
func (k *KnowledgeInjector) Name() string { return "order-knowledge" }

// Process implements pipeline.Stage.
func (k *KnowledgeInjector) Process(_ context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	txt, ok := f.(frame.Text)
	if !ok || dir != frame.Downstream {
		return pipeline.Forward(f, dir), nil
	}

	text := strings.TrimSpace(txt.Text)
	if text == "" {
		return pipeline.Forward(f, dir), nil
	}

	if number := extractOrderNumber(text); number != "" {
		if number != k.lastOrderNumber {
			k.lastOrderNumber = number
			k.lookup(number)
		}
		return pipeline.Forward(f, dir), nil
	}

	if detectOrderIntent(text) && !k.awaitingOrderNumber {
		k.awaitingOrderNumber = true
		k.injectFact(tagKnowledgeBase,
			"The user asked for an order status but has not yet provided an order number."+
				" Ask directly for the order number, mentioning you need it to fetch accurate details.")
	}

	return pipeline.Forward(f, dir), nil
}

// lookup resolves an extracted order number against the store and
// injects the matching system fact.
func (k *KnowledgeInjector) lookup(number string) {
	id, err := strconv.Atoi(number)
	var (
		order store.Order
		found bool
	)
	if err == nil {
		order, found = k.store.Order(id)
	}

	if !found {
		k.logger.Info("order not found", "order_number", number)
		k.injectFact(tagOrderNotFound, fmt.Sprintf(
			"No order was found with number %s."+
				" Tell the user you couldn't locate that order in the dataset,"+
				" and politely ask them to confirm the digits or share a different order number."+
				" Do not guess any details.", number))
		return
	}

	k.awaitingOrderNumber = false
	details := k.store.FormatOrderDetails(order)
	hint := fmt.Sprintf("Order %d %s", order.ID, statusHint(order.Status))
	k.logger.Info("order lookup", "order_number", number, "status", order.Status)

	k.injectFact(tagOrderLookup, fmt.Sprintf(
		"Order lookup result for order number %s:\n%s\n"+
			"Use ONLY this data when responding."+
			" State the order status and delivery expectation exactly as shown,"+
			" and mention key items only if needed."+
			" Never invent additional products, dates, or amounts."+
			" Hint for tone: %s", number, details, hint))
}

// injectFact appends a system message unless the identical content was
// already injected under the same tag.
func (k *KnowledgeInjector) injectFact(tag, content string) {
	if k.lastFacts[tag] == content {
		return
	}
	k.context.Append(RoleSystem, content)
	k.lastFacts[tag] = content
}

// extractOrderNumber returns the order number mentioned in text, or "".
// Explicit "order N" phrasing takes precedence over incidental numbers.
func extractOrderNumber(text string) string {
	if m := orderNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := standalonePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// detectOrderIntent reports whether text asks about an order's status.
func detectOrderIntent(text string) bool {
	normalized := strings.ToLower(text)
	for _, kw := range intentKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return strings.Contains(normalized, "order") && strings.Contains(normalized, "status")
}

func statusHint(status store.Status) string {
	if hint, ok := statusHints[status]; ok {
		return hint
	}
	return fmt.Sprintf("has status %s.", status)
}
