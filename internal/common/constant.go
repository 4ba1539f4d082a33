package common

// Cookie names are part of the client contract.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// Identity roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)
