// Mock data service - synthetic scenarios for dashboard iteration without
// a live poller. Only reachable through the debug API surface.
package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mentiond/mentiond/pkg/models"
)

var mockClients = []string{
	"MacBook-Pro.local",
	"iMac-Office.local",
	"MacBook-Air-Home.local",
	"Mac-Mini-Server.local",
	"MacBook-Work.local",
}

var mockChannels = []string{
	"engineering", "sales", "support", "marketing", "general",
	"random", "product", "design", "ops", "leadership",
}

var mockUsers = []string{
	"Alice", "Bob", "Carol", "David", "Emma",
	"Frank", "Grace", "Henry", "Iris", "Jack",
}

var mockTopics = []string{
	"the API", "the deployment", "the dashboard", "user authentication",
	"database migration", "performance issues", "the new feature",
	"customer feedback", "the bug fix", "code review", "the integration",
	"monitoring alerts", "test coverage", "documentation",
}

var messageTemplates = []string{
	"Hey %s, can you help me with %s?",
	"%s what do you think about %s?",
	"Thanks %s! That solved the %s issue.",
	"%s heads up - %s is down",
	"FYI %s - shipped %s to production",
	"Meeting at 2pm to discuss %[2]s. %[1]s can you join?",
	"%s great work on %s!",
	"%s the client is asking about %s",
	"Reminder %s: %s deadline is Friday",
	"%s let's prioritize %s this sprint",
}

var questionTemplates = []string{
	"%s quick question about %s",
	"%s can we sync on %s tomorrow?",
	"%s I'm blocked on %s, any ideas?",
	"Did anyone see %s's update on %s?",
	"%s do you know the status of %s?",
}

// MockDataSet is one generated scenario's worth of submissions.
type MockDataSet struct {
	Mentions []models.Mention
	Stats    []models.StatsSnapshot
	Activity []models.ChannelActivityReport
	Scenario string
}

// MockService generates synthetic submissions covering today's work hours.
type MockService struct {
	rng *rand.Rand
}

// NewMockService creates a generator seeded from the clock.
func NewMockService() *MockService {
	return &MockService{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// GenerateScenario builds a named data set. Unknown names fall back to the
// default scenario.
func (m *MockService) GenerateScenario(name string) MockDataSet {
	switch name {
	case "high_activity":
		return m.generate(name, 200, mockClients[:3])
	case "multi_job":
		return m.generate(name, 80, mockClients)
	default:
		return m.generate("default", 50, mockClients[:3])
	}
}

// generate produces mentions spread over today's work hours (8am to now,
// capped at 8pm), stats for each client, and hourly channel activity. Before
// 8am it produces mentions-free data, matching how real pollers only report
// during working hours.
func (m *MockService) generate(scenario string, numMentions int, clients []string) MockDataSet {
	set := MockDataSet{Scenario: scenario}
	now := time.Now()

	set.Stats = m.generateStats(clients, now)

	workStart := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	workEnd := time.Date(now.Year(), now.Month(), now.Day(), 20, 0, 0, 0, now.Location())
	if now.Before(workStart) {
		return set
	}
	effectiveEnd := now
	if effectiveEnd.After(workEnd) {
		effectiveEnd = workEnd
	}
	window := effectiveEnd.Sub(workStart)

	for i := 0; i < numMentions; i++ {
		ts := workStart.Add(time.Duration(m.rng.Int63n(int64(window) + 1)))
		topic := mockTopics[m.rng.Intn(len(mockTopics))]

		isQuestion := m.rng.Float64() < 0.3
		var text string
		if isQuestion {
			text = fmt.Sprintf(questionTemplates[m.rng.Intn(len(questionTemplates))], "@you", topic)
		} else {
			text = fmt.Sprintf(messageTemplates[m.rng.Intn(len(messageTemplates))], "@you", topic)
		}
		if m.rng.Float64() < 0.2 {
			text += fmt.Sprintf(" We should also consider %s.", mockTopics[m.rng.Intn(len(mockTopics))])
		}

		// Older mentions are likely handled already; recent ones unread.
		responded := false
		if now.Sub(ts) > 2*time.Hour {
			responded = m.rng.Float64() < 0.6
		}

		set.Mentions = append(set.Mentions, models.Mention{
			Timestamp:  ts.Format(time.RFC3339),
			Channel:    mockChannels[m.rng.Intn(len(mockChannels))],
			User:       mockUsers[m.rng.Intn(len(mockUsers))],
			Text:       text,
			IsQuestion: isQuestion,
			Responded:  responded,
			ClientID:   clients[m.rng.Intn(len(clients))],
			Workspace:  "Acme Corp",
		})
	}

	set.Activity = m.generateActivity(clients, now, effectiveEnd)
	return set
}

func (m *MockService) generateStats(clients []string, now time.Time) []models.StatsSnapshot {
	stats := make([]models.StatsSnapshot, 0, len(clients))
	for _, client := range clients {
		numChannels := 2 + m.rng.Intn(5)
		channels := make([]string, 0, numChannels)
		for _, idx := range m.rng.Perm(len(mockChannels))[:numChannels] {
			channels = append(channels, mockChannels[idx])
		}
		stats = append(stats, models.StatsSnapshot{
			ClientID:         client,
			UnreadCount:      m.rng.Intn(16),
			MessagesLastHour: m.rng.Intn(26),
			ActiveChannels:   channels,
			Timestamp:        now.Format(time.RFC3339),
		})
	}
	return stats
}

func (m *MockService) generateActivity(clients []string, now, effectiveEnd time.Time) []models.ChannelActivityReport {
	var reports []models.ChannelActivityReport
	date := now.Format("2006-01-02")

	channels := make([]string, 0, 5)
	for _, idx := range m.rng.Perm(len(mockChannels))[:5] {
		channels = append(channels, mockChannels[idx])
	}

	for _, client := range clients {
		for hour := 8; hour <= effectiveEnd.Hour() && hour <= 20; hour++ {
			for _, channel := range channels {
				// Peak hours carry more traffic.
				max := 10
				if hour >= 10 && hour <= 16 {
					max = 30
				}
				count := m.rng.Intn(max)
				if count == 0 {
					continue
				}
				reports = append(reports, models.ChannelActivityReport{
					Channel:      channel,
					MessageCount: count,
					Hour:         hour,
					Date:         date,
					ClientID:     client,
				})
			}
		}
	}
	return reports
}
