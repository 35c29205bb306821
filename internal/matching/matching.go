// Package matching expands plans and clients into the individual units of work
// that become tasks. All functions are pure and operate on catalog snapshots.
package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/medadvisor/advisor-api/internal/models"
)

// Reason explains why a client produced no work.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNotApproved         Reason = "not_approved"
	ReasonNoInfluencerDoctors Reason = "no_influencer_doctors"
	ReasonNoMatchingPlans     Reason = "no_matching_plans"
)

// Message is the user-facing text for a zero-result reason.
func (r Reason) Message() string {
	switch r {
	case ReasonNotApproved:
		return "client is not approved"
	case ReasonNoInfluencerDoctors:
		return "client has no influencer doctors"
	case ReasonNoMatchingPlans:
		return "no matching plans for client"
	}
	return ""
}

// Item is one eligible (client, product, doctor, marketing task) combination under a plan.
type Item struct {
	PlanID        string
	ClientID      string
	ProductID     string
	Doctor        models.Doctor
	MarketingTask models.MarketingTask
	AssignedToID  string
	Priority      string
	TargetSales   float64
}

const keySeparator = "\x1f"

// Key is the deterministic task ID for the item: hex SHA-256 over plan, client,
// product, doctor and marketing task.
func (i Item) Key() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		i.PlanID,
		i.ClientID,
		i.ProductID,
		i.Doctor.Name,
		i.Doctor.Phone,
		i.MarketingTask.ID,
	}, keySeparator)))
	return hex.EncodeToString(sum[:])
}

// Title is a short human label for the task built from the item.
func (i Item) Title() string {
	name := i.MarketingTask.Name
	if name == "" {
		name = i.MarketingTask.ID
	}
	if i.Doctor.Name == "" {
		return name
	}
	return name + " - " + i.Doctor.Name
}

// PlanMatch is the expansion of one plan.
type PlanMatch struct {
	Plan    models.Plan
	Items   []Item
	Clients []string
	// ProductsProcessed counts eligible (client, product) pairs.
	ProductsProcessed int
	// MissingProducts lists product IDs the plan references but the catalog lacks.
	MissingProducts []string
}

// ClientMatch is the expansion of one client against every plan.
type ClientMatch struct {
	Client            models.Client
	Reason            Reason
	InfluencerDoctors int
	Plans             []PlanMatch
}

// Items returns all items across matched plans in plan order.
func (m ClientMatch) Items() []Item {
	var items []Item
	for _, p := range m.Plans {
		items = append(items, p.Items...)
	}
	return items
}

// AssigneeFor applies the assignment rule: the client's own representative,
// then the plan's first sales representative, then the plan's delivery agent.
func AssigneeFor(plan models.Plan, client models.Client) string {
	if client.AssignedToID != "" {
		return client.AssignedToID
	}
	for _, id := range plan.SalesRepIDs {
		if id != "" {
			return id
		}
	}
	return plan.DeliveryID
}

// ClientEligible reports whether a client falls inside the plan's territory and is not yet covered.
func ClientEligible(plan models.Plan, client models.Client) bool {
	return client.IsApproved() &&
		plan.HasCity(client.City) &&
		plan.HasDepartment(client.Department) &&
		!plan.CoversClient(client.ID)
}

// MatchPlan selects eligible clients for the plan and expands each against the plan's products.
func MatchPlan(plan models.Plan, clients []models.Client, products []models.Product) PlanMatch {
	targets, missing := resolveTargets(plan, products)
	match := PlanMatch{Plan: plan, MissingProducts: missing}

	for _, client := range clients {
		if !ClientEligible(plan, client) {
			continue
		}
		match.Clients = append(match.Clients, client.ID)
		items, pairs := expand(plan, client, targets)
		match.Items = append(match.Items, items...)
		match.ProductsProcessed += pairs
	}
	return match
}

// MatchClient finds the plans that cover the client and expands the client against each.
// Zero-result reasons are checked in order: approval, influencer doctors, matching plans.
func MatchClient(client models.Client, plans []models.Plan, products []models.Product) ClientMatch {
	match := ClientMatch{Client: client, InfluencerDoctors: len(client.InfluencerDoctors())}

	if !client.IsApproved() {
		match.Reason = ReasonNotApproved
		return match
	}
	if match.InfluencerDoctors == 0 {
		match.Reason = ReasonNoInfluencerDoctors
		return match
	}

	for _, plan := range plans {
		if !ClientEligible(plan, client) {
			continue
		}
		targets, missing := resolveTargets(plan, products)
		items, pairs := expand(plan, client, targets)
		match.Plans = append(match.Plans, PlanMatch{
			Plan:              plan,
			Items:             items,
			Clients:           []string{client.ID},
			ProductsProcessed: pairs,
			MissingProducts:   missing,
		})
	}
	if len(match.Plans) == 0 {
		match.Reason = ReasonNoMatchingPlans
	}
	return match
}

type target struct {
	product     models.Product
	targetSales float64
}

// resolveTargets returns the plan's products in plan order, skipping duplicates,
// plus the referenced IDs that are not in the catalog.
func resolveTargets(plan models.Plan, products []models.Product) ([]target, []string) {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	seen := make(map[string]bool, len(plan.TargetProductsSales))
	var targets []target
	var missing []string
	for _, t := range plan.TargetProductsSales {
		if t.ProductID == "" || seen[t.ProductID] {
			continue
		}
		seen[t.ProductID] = true

		product, ok := byID[t.ProductID]
		if !ok {
			missing = append(missing, t.ProductID)
			continue
		}
		targets = append(targets, target{product: product, targetSales: t.TargetSales})
	}
	return targets, missing
}

func expand(plan models.Plan, client models.Client, targets []target) ([]Item, int) {
	doctors := client.InfluencerDoctors()
	assignee := AssigneeFor(plan, client)

	var items []Item
	pairs := 0
	for _, t := range targets {
		if !t.product.ServesDepartment(client.Department) {
			continue
		}
		pairs++
		for _, doctor := range doctors {
			for _, task := range t.product.MarketingTasks {
				items = append(items, Item{
					PlanID:        plan.ID,
					ClientID:      client.ID,
					ProductID:     t.product.ID,
					Doctor:        doctor,
					MarketingTask: task,
					AssignedToID:  assignee,
					Priority:      client.Priority,
					TargetSales:   t.targetSales,
				})
			}
		}
	}
	return items, pairs
}
