// Package metrics exposes the small set of Prometheus counters and gauges
// each role-specific process (coordinator, data node, chat node) serves on
// its own /metrics endpoint. There is no tracing layer here, unlike the
// fuller OpenTelemetry setups elsewhere in the retrieval pack — this system
// has no distributed-tracing requirement, just point counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Coordinator holds the counters and gauges the coordinator role serves.
type Coordinator struct {
	reg *prometheus.Registry

	TxnCommitted  prometheus.Counter
	TxnAborted    *prometheus.CounterVec
	ChatNodes     prometheus.Gauge
	DataNodes     prometheus.Gauge
	Reestablishes prometheus.Counter
}

// NewCoordinator registers and returns the coordinator's metrics on a
// private registry, served from Handler().
func NewCoordinator() *Coordinator {
	reg := prometheus.NewRegistry()
	c := &Coordinator{
		reg: reg,
		TxnCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatrelay_coordinator_transactions_committed_total",
			Help: "Transactions that reached a committed decision.",
		}),
		TxnAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatrelay_coordinator_transactions_aborted_total",
			Help: "Transactions aborted, labeled by op.",
		}, []string{"op"}),
		ChatNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_coordinator_chat_nodes",
			Help: "Number of chat nodes currently in the roster.",
		}),
		DataNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_coordinator_data_nodes",
			Help: "Number of data nodes currently in the roster.",
		}),
		Reestablishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatrelay_coordinator_reestablishes_total",
			Help: "Chatroom re-establishment requests handled.",
		}),
	}
	reg.MustRegister(c.TxnCommitted, c.TxnAborted, c.ChatNodes, c.DataNodes, c.Reestablishes)
	return c
}

// Handler serves the coordinator's metrics in the Prometheus exposition
// format.
func (c *Coordinator) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// DataNode holds the counters the data node role serves.
type DataNode struct {
	reg *prometheus.Registry

	OpsApplied  *prometheus.CounterVec
	PollsWoken  prometheus.Counter
	InFlightTxn prometheus.Gauge
}

// NewDataNode registers and returns the data node's metrics on a private
// registry, served from Handler().
func NewDataNode() *DataNode {
	reg := prometheus.NewRegistry()
	d := &DataNode{
		reg: reg,
		OpsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatrelay_datanode_ops_applied_total",
			Help: "Transactions applied to durable storage, labeled by op.",
		}, []string{"op"}),
		PollsWoken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatrelay_datanode_decision_polls_total",
			Help: "Decision-poll tasks that reached the coordinator.",
		}),
		InFlightTxn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_datanode_inflight_transactions",
			Help: "Transactions currently between canCommit=YES and a decision.",
		}),
	}
	reg.MustRegister(d.OpsApplied, d.PollsWoken, d.InFlightTxn)
	return d
}

// Handler serves the data node's metrics in the Prometheus exposition
// format.
func (d *DataNode) Handler() http.Handler {
	return promhttp.HandlerFor(d.reg, promhttp.HandlerOpts{})
}

// ChatNode holds the counters and gauges the chat node role serves.
type ChatNode struct {
	reg *prometheus.Registry

	MessagesPublished prometheus.Counter
	Subscribers       prometheus.Gauge
	ChatroomsHosted   prometheus.Gauge
}

// NewChatNode registers and returns the chat node's metrics on a private
// registry, served from Handler().
func NewChatNode() *ChatNode {
	reg := prometheus.NewRegistry()
	c := &ChatNode{
		reg: reg,
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatrelay_chatnode_messages_published_total",
			Help: "Messages fanned out to subscribers across all hosted chatrooms.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_chatnode_subscribers",
			Help: "Live subscriber streams across all hosted chatrooms.",
		}),
		ChatroomsHosted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatrelay_chatnode_chatrooms_hosted",
			Help: "Chatrooms currently hosted on this node.",
		}),
	}
	reg.MustRegister(c.MessagesPublished, c.Subscribers, c.ChatroomsHosted)
	return c
}

// Handler serves the chat node's metrics in the Prometheus exposition
// format.
func (c *ChatNode) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
