package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

type Handler struct {
	svc       *predict.Service
	templates *template.Template
}

func New(svc *predict.Service) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, templates: tmpl}, nil
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.StaticFS("/static", http.FS(StaticFS()))

	r.GET("/", h.ShowForm)
	r.POST("/", h.SubmitForm)

	api := r.Group("/api/v1")
	api.GET("/schema", h.Schema)
	api.POST("/predict", h.Predict)
}

// ShowForm renders the calculator with the catalog's initial values.
func (h *Handler) ShowForm(c *gin.Context) {
	h.render(c, http.StatusOK, newPage(h.svc, nil))
}

// SubmitForm runs one prediction from the posted form and re-renders the page.
func (h *Handler) SubmitForm(c *gin.Context) {
	if !h.svc.Ready() {
		h.render(c, http.StatusServiceUnavailable, newPage(h.svc, nil))
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form")
		return
	}

	values := map[string]string{}
	inputs := map[string]float64{}
	var errs []string
	for _, f := range h.svc.Variant().Fields {
		raw, ok := c.GetPostForm(f.Name)
		if !ok {
			continue
		}
		values[f.Name] = raw
		v, err := f.Parse(raw)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		inputs[f.Name] = v
	}

	req := predict.Request{Inputs: inputs}
	// The slider posts its rendered default back; that keeps the artifact's
	// exact threshold instead of the rounded display value.
	if raw := c.PostForm("threshold_percent"); raw != "" && raw != risk.SliderPercent(h.svc.Threshold()) {
		values["threshold_percent"] = raw
		pct, err := parsePercent(raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			req.ThresholdPercent = &pct
		}
	}

	page := newPage(h.svc, values)
	if len(errs) > 0 {
		page.Errors = errs
		h.render(c, http.StatusUnprocessableEntity, page)
		return
	}

	res, err := h.svc.Predict(c.Request.Context(), req)
	if err != nil {
		status, _ := statusFor(err)
		log.WithError(err).Warn("form prediction failed")
		page.Errors = []string{err.Error()}
		h.render(c, status, page)
		return
	}
	page.withResult(res)
	h.render(c, http.StatusOK, page)
}

type predictRequest struct {
	Inputs           map[string]any `json:"inputs"`
	ThresholdPercent *float64       `json:"threshold_percent" binding:"omitempty,min=1,max=99"`
}

type predictResponse struct {
	Label       risk.Label         `json:"label"`
	Probability float64            `json:"probability"`
	Percent     string             `json:"percent"`
	Threshold   float64            `json:"threshold"`
	Color       string             `json:"color"`
	Icon        string             `json:"icon"`
	Advice      string             `json:"advice"`
	Derived     features.Derived   `json:"derived"`
	Features    map[string]float64 `json:"features"`
	Order       []string           `json:"feature_order"`
}

// Predict is the JSON form of SubmitForm.
func (h *Handler) Predict(c *gin.Context) {
	var body predictRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "message": err.Error()})
		return
	}

	inputs := make(map[string]float64, len(body.Inputs))
	for name, raw := range body.Inputs {
		f, ok := h.svc.Variant().Field(name)
		if !ok {
			mapError(c, unknownInput(name))
			return
		}
		v, err := f.Value(raw)
		if err != nil {
			mapError(c, err)
			return
		}
		inputs[name] = v
	}

	res, err := h.svc.Predict(c.Request.Context(), predict.Request{Inputs: inputs, ThresholdPercent: body.ThresholdPercent})
	if err != nil {
		mapError(c, err)
		return
	}

	v := res.Verdict
	c.JSON(http.StatusOK, predictResponse{
		Label:       v.Label,
		Probability: v.Probability,
		Percent:     v.Percent,
		Threshold:   v.Threshold,
		Color:       v.Color,
		Icon:        v.Icon,
		Advice:      v.Advice,
		Derived:     res.Derived,
		Features:    res.Vector.Map(),
		Order:       res.Vector.Names(),
	})
}

// Schema describes the calculator inputs and the loaded model schema.
func (h *Handler) Schema(c *gin.Context) {
	resp := gin.H{
		"variant":   h.svc.Variant(),
		"ready":     h.svc.Ready(),
		"threshold": h.svc.Threshold(),
	}
	if a := h.svc.Artifact(); a != nil {
		resp["model"] = gin.H{
			"name":           a.Name,
			"kind":           a.Model.Kind(),
			"schema_version": a.SchemaVersion,
			"feature_names":  a.FeatureNames,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) render(c *gin.Context, status int, page *pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "page", page); err != nil {
		log.WithError(err).Error("render page")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
