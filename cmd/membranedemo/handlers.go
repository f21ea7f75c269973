package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brinklayer/membrane/internal/cylinder"
)

// handleDemoRecord wraps the demo record from the wet graph into the dry
// graph and reads its properties back out through the proxy, exercising
// the Get and OwnKeys traps end to end (spec.md §6 S1).
func (a *membraneApp) handleDemoRecord(c *gin.Context) {
	wrapped, err := a.m.ConvertArgumentToProxy(a.wet, a.dry, a.record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	proxy, ok := wrapped.(*cylinder.Proxy)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"value": wrapped})
		return
	}
	keys, err := proxy.OwnKeys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := gin.H{}
	fields := gin.H{}
	for _, key := range keys {
		v, err := proxy.Get(key, proxy)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fields[toFieldName(key)] = v
	}
	out["origin_graph"] = string(a.wet)
	out["target_graph"] = string(a.dry)
	out["own_keys"] = keys
	out["fields"] = fields
	c.JSON(http.StatusOK, out)
}

// handleDemoGreet wraps the demo greeter into the dry graph and invokes it
// through the proxy's Apply trap (spec.md §4.2 apply/construct handling).
func (a *membraneApp) handleDemoGreet(c *gin.Context) {
	name := c.Query("name")
	wrapped, err := a.m.ConvertArgumentToProxy(a.wet, a.dry, a.greeter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	proxy, ok := wrapped.(*cylinder.Proxy)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "greeter did not cross as a proxy"})
		return
	}
	var args []any
	if name != "" {
		args = []any{name}
	}
	rv, err := proxy.Apply(nil, args)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": rv})
}

func toFieldName(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return ""
}
