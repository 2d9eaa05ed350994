package flow

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
)

// sessionData is the transient per-user state that does not belong on the
// profile, persisted as JSON inside the session row.
type sessionData struct {
	Scenarios      []string `json:"scenarios,omitempty"`
	ScenarioIndex  int      `json:"scenario_index,omitempty"`
	TotalScenarios int      `json:"total_scenarios,omitempty"`
}

// sessionStore loads and saves the conversation state exactly once per
// event. Sessions are keyed by user id and never shared across users.
type sessionStore struct {
	db *gorm.DB
}

func (st sessionStore) load(userID uint) (State, sessionData, error) {
	var sess models.Session
	err := st.db.Where("user_id = ?", userID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StateIdle, sessionData{}, nil
	}
	if err != nil {
		return StateIdle, sessionData{}, err
	}
	var data sessionData
	if sess.Data != "" {
		// A corrupt blob resets the transient data, not the whole session.
		_ = json.Unmarshal([]byte(sess.Data), &data)
	}
	return State(sess.State), data, nil
}

func (st sessionStore) save(userID uint, state State, data sessionData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return err
	}
	res := st.db.Model(&models.Session{}).Where("user_id = ?", userID).
		UpdateColumns(map[string]any{"state": string(state), "data": string(blob)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return st.db.Create(&models.Session{UserID: userID, State: string(state), Data: string(blob)}).Error
	}
	return nil
}
