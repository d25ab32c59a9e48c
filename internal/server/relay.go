package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/region23/hotelbot/internal/validation"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

// handleConsulta принимает вопрос посетителя
func (s *Server) handleConsulta(w http.ResponseWriter, r *http.Request) {
	question := field(readBody(r), "pregunta", "question")
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing_question"))
		return
	}
	if err := validation.ValidateQuestion(question); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_question"))
		return
	}

	res, err := s.deps.Relay.Ask(r.Context(), question)
	if err != nil {
		s.logger.Error("Consulta failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody(errorCode(err, "consulta_error")))
		return
	}

	out := envelope{"ok": true, "token": res.Token}
	if res.Mode != "" {
		out["mode"] = res.Mode
	}
	writeJSON(w, http.StatusOK, out)
}

// handleConsultaWait ждет ответа по токену. Без ответа за отведенное время отдает 204.
func (s *Server) handleConsultaWait(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing_token"))
		return
	}
	if err := validation.ValidateToken(token); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_token"))
		return
	}

	answer, ok, err := s.deps.Relay.Wait(r.Context(), token)
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		// клиент ушел, отвечать некому
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.logger.Error("Consulta wait failed", logger.String("token", token), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody(errorCode(err, "wait_error")))
		return
	case !ok:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "respuesta": answer})
}

// handleRelayAnswer записывает ответ администратора из формы /relay
func (s *Server) handleRelayAnswer(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	token := field(body, "token")
	answer := field(body, "respuesta", "answer")
	if token == "" || answer == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing"))
		return
	}
	if err := validation.ValidateAnswer(answer); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_answer"))
		return
	}
	// токен другого формата не мог быть выдан
	if !validation.IsToken(token) {
		writeJSON(w, http.StatusNotFound, errorBody("token_not_found"))
		return
	}

	err := s.deps.Relay.Answer(r.Context(), token, answer)
	switch {
	case apperrors.HasCode(err, apperrors.ErrTokenNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("token_not_found"))
	case err != nil:
		s.logger.Error("Relay answer failed", logger.String("token", token), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody(errorCode(err, "relay_error")))
	default:
		writeJSON(w, http.StatusOK, envelope{"ok": true})
	}
}

var relayForm = template.Must(template.New("relay").Parse(`<!doctype html>
<html><head><meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Responder consulta</title>
<style>
body{font-family:system-ui,sans-serif;padding:18px;max-width:720px;margin:0 auto;background:#f6f7fb}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:12px;padding:16px}
textarea{width:100%;min-height:120px;padding:10px;border:1px solid #e5e7eb;border-radius:10px}
button{background:#0ea5e9;color:#fff;border:0;border-radius:10px;padding:10px 14px;font-weight:700}
.muted{color:#6b7280;font-size:13px}
</style></head>
<body>
<div class="card">
<h3>Responder al huésped</h3>
<p class="muted">Token: <code>{{.Token}}</code></p>
<textarea id="msg" placeholder="Escribí tu respuesta para el huésped..."></textarea>
<div style="margin-top:10px"><button id="send">Enviar respuesta</button> <span id="status" class="muted"></span></div>
</div>
<script>
const token = {{.Token}};
const el = (id) => document.getElementById(id);
el('send').onclick = async () => {
  const respuesta = el('msg').value.trim();
  if (!respuesta) { alert('Escribí una respuesta.'); return; }
  el('send').disabled = true;
  el('status').textContent = 'Enviando...';
  try {
    const r = await fetch('/api/web/relay', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({token, respuesta})});
    const j = await r.json().catch(() => ({ok: false}));
    el('status').textContent = j.ok ? '✅ Enviado. Podés cerrar esta ventana.' : '❌ Error al enviar';
    el('send').disabled = !!j.ok;
  } catch (e) {
    el('status').textContent = '❌ Error de red';
    el('send').disabled = false;
  }
};
</script>
</body></html>`))

// handleRelayForm отдает HTML форму ответа для администратора
func (s *Server) handleRelayForm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Falta token", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := relayForm.Execute(w, struct{ Token string }{token}); err != nil {
		s.logger.Error("Failed to render relay form", logger.Error(err))
	}
}
