package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/kds"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// viewCapability is what a session needs to watch a view.
var viewCapability = map[services.ViewName]session.Capability{
	services.ViewKitchen: session.CapKitchen,
	services.ViewWaiter:  session.CapServe,
	services.ViewAdmin:   session.CapViewAdmin,
}

// KDSController streams change notices and live views to staff displays.
type KDSController struct {
	Hub    *kds.Hub
	Bus    *events.Bus
	Views  *services.ViewService
	Orders *services.OrderService

	SyncMode       string
	TimingInterval time.Duration

	upgrader websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, bus *events.Bus, views *services.ViewService, orders *services.OrderService, syncMode string, origins []string) *KDSController {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return &KDSController{
		Hub:            hub,
		Bus:            bus,
		Views:          views,
		Orders:         orders,
		SyncMode:       syncMode,
		TimingInterval: time.Minute,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || wildcard || allowed[origin]
			},
		},
	}
}

// Changes relays raw change notices for the caller's restaurant.
func (kc *KDSController) Changes(c *gin.Context) {
	sess := middlewares.Session(c)
	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := kds.NewClient(ws, sess.RestaurantID, sess.UserID, sess.Role(), "changes")
	kc.Hub.Register(client)
	defer kc.Hub.Unregister(client)

	sub := kc.Bus.Subscribe(sess.RestaurantID)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-client.Done():
				return
			case n, ok := <-sub.C():
				if !ok {
					return
				}
				if client.Send(n) != nil {
					return
				}
			}
		}
	}()

	go client.WritePump()
	client.ReadPump(func(cmd kds.Command) {
		if cmd.Action == "ping" {
			_ = client.Send(kds.Frame{Type: kds.FramePong})
		}
	})
}

// View streams one live view (kitchen, waiter or admin) and accepts status
// commands from the display.
func (kc *KDSController) View(c *gin.Context) {
	sess := middlewares.Session(c)
	view, err := services.ParseViewName(c.Param("view"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !sess.Can(viewCapability[view]) {
		utils.RespondError(c, http.StatusForbidden, errors.New("insufficient permissions"))
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := kds.NewClient(ws, sess.RestaurantID, sess.UserID, sess.Role(), string(view))
	kc.Hub.Register(client)
	defer kc.Hub.Unregister(client)

	syncer := kds.NewSynchronizer(kc.Views, kc.Bus, sess.RestaurantID, view, kc.SyncMode)
	syncer.TimingInterval = kc.TimingInterval

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-client.Done()
		cancel()
	}()
	go func() {
		err := syncer.Run(ctx, func(f kds.Frame) error { return client.Send(f) })
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, kds.ErrClientGone) {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"restaurant_id": sess.RestaurantID,
				"view":          view,
			}).Warnf("View stream stopped: %v", err)
		}
	}()

	go client.WritePump()
	client.ReadPump(func(cmd kds.Command) {
		switch cmd.Action {
		case "ping":
			_ = client.Send(kds.Frame{Type: kds.FramePong, View: view})
		case "refresh":
			syncer.Refresh()
		case "set_status":
			kc.setStatus(ctx, sess, syncer, client, view, cmd)
		}
	})
}

// setStatus applies the change to the display first, then stores it. Changes the
// session may not make, or that skip a step, only produce an error frame. A change
// the server rejects triggers a full refresh that discards the provisional state.
func (kc *KDSController) setStatus(ctx context.Context, sess *session.Context, syncer *kds.Synchronizer, client *kds.Client, view services.ViewName, cmd kds.Command) {
	status := models.OrderStatus(cmd.Status)
	reject := func(err error) {
		_ = client.Send(kds.Frame{Type: kds.FrameError, View: view, Error: err.Error()})
	}
	if !sess.Can(services.TransitionCapability(status)) {
		reject(fmt.Errorf("%w: %s cannot mark orders %s", services.ErrForbidden, sess.Role(), status))
		return
	}
	frame, err := syncer.ApplyOptimistic(cmd.OrderID, status)
	switch {
	case err == nil:
		_ = client.Send(frame)
	case errors.Is(err, kds.ErrNotOnView):
		// Let the service decide; there is nothing to show yet.
	default:
		reject(err)
		return
	}
	if _, err := kc.Orders.Advance(ctx, sess, cmd.OrderID, status); err != nil {
		reject(err)
		syncer.Refresh()
	}
}
