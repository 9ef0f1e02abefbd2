package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost bcrypt 计算成本
const PasswordCost = 10

// dummyHash 用户不存在时参与比较的哈希，使两条路径耗时接近
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("k9aliases-dummy-password"), PasswordCost)

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// burnPasswordCheck 执行一次必然失败的比较
func burnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
