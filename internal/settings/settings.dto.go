package settings

// UpdateSettingsRequest is a partial update. A nil field is left untouched;
// a non-nil field is applied even when it holds the zero value.
type UpdateSettingsRequest struct {
	DailyLimit     *int     `json:"daily_limit,omitempty" validate:"omitnil,gt=0,lte=2147483647"`
	CigarettePrice *float64 `json:"cigarette_price,omitempty" validate:"omitnil,gte=0"`
	Currency       *string  `json:"currency,omitempty" validate:"omitnil,len=3,alpha"`
	SoundEnabled   *bool    `json:"sound_enabled,omitempty"`
	DelayDuration  *int     `json:"delay_duration,omitempty" validate:"omitnil,gt=0,lte=2147483647"`
}

